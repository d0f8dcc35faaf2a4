package handlers

import (
	"go.uber.org/zap"

	"github.com/harentsoaR/medibook/internal/auth"
	"github.com/harentsoaR/medibook/internal/images"
	"github.com/harentsoaR/medibook/internal/notify"
	"github.com/harentsoaR/medibook/internal/policy"
	"github.com/harentsoaR/medibook/internal/store"
	"github.com/harentsoaR/medibook/pkg/metrics"
)

// Handler bundles the collaborators every route needs.
type Handler struct {
	Store   *store.Store
	Tokens  *auth.TokenManager
	Roles   *policy.RolePolicy
	Images  *images.Client
	SMS     *notify.SMSClient
	Metrics *metrics.Collector
	Log     *zap.Logger
}

func NewHandler(
	st *store.Store,
	tokens *auth.TokenManager,
	roles *policy.RolePolicy,
	imagesClient *images.Client,
	sms *notify.SMSClient,
	collector *metrics.Collector,
	log *zap.Logger,
) *Handler {
	return &Handler{
		Store:   st,
		Tokens:  tokens,
		Roles:   roles,
		Images:  imagesClient,
		SMS:     sms,
		Metrics: collector,
		Log:     log,
	}
}
