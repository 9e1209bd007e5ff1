package handlers

import (
	"go.uber.org/zap"

	"shopwhiz/go_backend/internal/app/config"
	"shopwhiz/go_backend/internal/app/http/handlers/assistant"
	"shopwhiz/go_backend/internal/domain/catalog"
)

type Handlers struct {
	Cfg       config.Config
	Log       *zap.Logger
	Assistant *assistant.Service
	Catalog   *catalog.Store
}

func New(cfg config.Config, log *zap.Logger, svc *assistant.Service, cat *catalog.Store) *Handlers {
	return &Handlers{
		Cfg:       cfg,
		Log:       log,
		Assistant: svc,
		Catalog:   cat,
	}
}
