package httpapi

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"aistudio/internal/providers/registry"
	"aistudio/internal/storage"
)

// Proxy produces assistant replies and images. ChatReply must not fail;
// GenerateImage returns an error when no image could be produced.
type Proxy interface {
	ChatReply(ctx context.Context, message, alias string) string
	GenerateImage(ctx context.Context, prompt, alias string) (string, error)
}

type Options struct {
	Store             storage.Store
	Proxy             Proxy
	ChatModels        registry.ModelTable
	ImageModels       registry.ModelTable
	DefaultImageAlias string
}

type API struct {
	store             storage.Store
	proxy             Proxy
	chatModels        registry.ModelTable
	imageModels       registry.ModelTable
	defaultImageAlias string
	validate          *validator.Validate
}

func New(opts Options) *API {
	return &API{
		store:             opts.Store,
		proxy:             opts.Proxy,
		chatModels:        opts.ChatModels,
		imageModels:       opts.ImageModels,
		defaultImageAlias: opts.DefaultImageAlias,
		validate:          newValidator(opts.ChatModels, opts.ImageModels),
	}
}

func (a *API) AddRoutes(r chi.Router) {
	r.Route("/chat", func(r chi.Router) {
		r.Get("/messages", RestHandler(a.ListChatMessages))
		r.Post("/message", RestHandler(a.SendChatMessage))
	})
	r.Route("/images", func(r chi.Router) {
		r.Get("/", RestHandler(a.ListImages))
		r.Post("/generate", RestHandler(a.GenerateImage))
	})
	r.Get("/models", RestHandler(a.ListModels))
}
