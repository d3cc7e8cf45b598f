package httpapi

import (
	"net/http"

	"github.com/rs/zerolog"

	"aistudio/internal/storage"
)

type imageSettingsRequest struct {
	Style       string `json:"style" validate:"omitempty,max=100"`
	AspectRatio string `json:"aspectRatio" validate:"omitempty,max=20"`
}

type generateImageRequest struct {
	Prompt   string                `json:"prompt" validate:"required,max=500"`
	Model    string                `json:"model" validate:"omitempty,image_model"`
	Settings *imageSettingsRequest `json:"settings"`
}

type modelsResponse struct {
	Chat              []string `json:"chat"`
	Image             []string `json:"image"`
	DefaultImageModel string   `json:"defaultImageModel"`
}

func (a *API) ListImages(r *http.Request) (any, error) {
	images, err := a.store.ListGeneratedImages(r.Context())
	if err != nil {
		return nil, CodedError(http.StatusInternalServerError, "Failed to fetch generated images", err)
	}
	if images == nil {
		images = []storage.GeneratedImage{}
	}
	return images, nil
}

// GenerateImage persists a record only after the upstream call succeeds.
func (a *API) GenerateImage(r *http.Request) (any, error) {
	req, err := ParseRequest[generateImageRequest](r, a.validate)
	if err != nil {
		return nil, err
	}
	ctx := r.Context()

	model := req.Model
	if model == "" {
		model = a.defaultImageAlias
	}

	imageURL, err := a.proxy.GenerateImage(ctx, req.Prompt, model)
	if err != nil {
		return nil, CodedError(http.StatusInternalServerError, "Failed to generate image", err)
	}

	var settings *storage.ImageSettings
	if req.Settings != nil {
		settings = &storage.ImageSettings{Style: req.Settings.Style, AspectRatio: req.Settings.AspectRatio}
	}
	img, err := a.store.CreateGeneratedImage(ctx, storage.NewGeneratedImage{
		Prompt:   req.Prompt,
		ImageURL: imageURL,
		Model:    model,
		Settings: settings,
	})
	if err != nil {
		return nil, CodedError(http.StatusInternalServerError, "Failed to generate image", err)
	}

	zerolog.Ctx(ctx).Debug().Str("model", model).Str("image_id", img.ID).Msg("image stored")
	return img, nil
}

func (a *API) ListModels(r *http.Request) (any, error) {
	return modelsResponse{
		Chat:              a.chatModels.Names(),
		Image:             a.imageModels.Names(),
		DefaultImageModel: a.defaultImageAlias,
	}, nil
}
