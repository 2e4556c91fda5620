package handler

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	integrationapp "github.com/stockup/backend/internal/application/integration"
	"github.com/stockup/backend/internal/domain/integration"
)

// Provider kinds as they appear in URLs
const (
	providerKindERPPath = "msdynamics"
	providerKindPOSPath = "vend"
)

// ConnectHandler drives the OAuth connect flow for both providers. The
// callback endpoints are hit by browser redirects from the provider, so
// they carry no session token; the tenant travels in the state parameter.
type ConnectHandler struct {
	BaseHandler
	service *integrationapp.ConnectService
	// appRedirectURL is where the browser lands after a callback completes
	appRedirectURL string
	logger         *zap.Logger
}

// NewConnectHandler creates a new ConnectHandler
func NewConnectHandler(service *integrationapp.ConnectService, appRedirectURL string, logger *zap.Logger) *ConnectHandler {
	return &ConnectHandler{
		service:        service,
		appRedirectURL: appRedirectURL,
		logger:         logger,
	}
}

// connectState is the OAuth state payload. The ERP identity provider does
// not echo the resource back on the callback, so it rides in the state.
type connectState struct {
	TenantID uuid.UUID `json:"tenant_id"`
	Resource string    `json:"resource,omitempty"`
}

func encodeConnectState(s connectState) string {
	raw, _ := json.Marshal(s)
	return base64.RawURLEncoding.EncodeToString(raw)
}

func decodeConnectState(encoded string) (connectState, error) {
	var s connectState
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return s, fmt.Errorf("%w: malformed state", integration.ErrInvalidInput)
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return s, fmt.Errorf("%w: malformed state", integration.ErrInvalidInput)
	}
	if s.TenantID == uuid.Nil {
		return s, fmt.Errorf("%w: state missing tenant", integration.ErrInvalidInput)
	}
	return s, nil
}

// providerFromPath maps a URL path segment to a provider kind
func providerFromPath(kind string) (integration.ProviderKind, bool) {
	switch kind {
	case providerKindERPPath:
		return integration.ProviderKindERP, true
	case providerKindPOSPath:
		return integration.ProviderKindPOS, true
	default:
		return "", false
	}
}

// AuthorizationURLResponse carries the provider consent page URL
type AuthorizationURLResponse struct {
	URL string `json:"url"`
}

// SelectCompanyRequest records the ERP legal entity for the tenant
type SelectCompanyRequest struct {
	CompanyID string `json:"company_id" binding:"required,min=1,max=50"`
}

// GetAuthorizationURL godoc
// @Summary      Build the provider consent page URL
// @Description  Returns the URL the browser should visit to authorize the
// @Description  integration. For msdynamics the resource query parameter
// @Description  names the tenant's ERP instance and is required.
// @Tags         connect
// @Produce      json
// @Param        kind path string true "Provider kind" Enums(msdynamics, vend)
// @Param        resource query string false "ERP instance URL (msdynamics only)"
// @Success      200 {object} dto.Response{data=AuthorizationURLResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orgs/{id}/connect/{kind}/url [get]
func (h *ConnectHandler) GetAuthorizationURL(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid session")
		return
	}

	provider, ok := providerFromPath(c.Param("kind"))
	if !ok {
		h.BadRequest(c, "Unknown provider kind")
		return
	}

	resource := c.Query("resource")
	state := encodeConnectState(connectState{TenantID: tenantID, Resource: resource})

	url, err := h.service.AuthorizationURL(provider, state, resource)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, AuthorizationURLResponse{URL: url})
}

// ERPCallback godoc
// @Summary      Complete the ERP OAuth flow
// @Description  Exchange endpoint for the identity provider redirect. The
// @Description  browser is forwarded back to the application afterwards.
// @Tags         connect
// @Param        code query string true "Authorization code"
// @Param        state query string true "Opaque state from the authorize URL"
// @Success      302 "Redirect to the application"
// @Router       /connect/msdynamics/callback [get]
func (h *ConnectHandler) ERPCallback(c *gin.Context) {
	state, err := decodeConnectState(c.Query("state"))
	if err != nil {
		h.redirectWithError(c, providerKindERPPath, "invalid_state")
		return
	}

	code := c.Query("code")
	if code == "" {
		h.redirectWithError(c, providerKindERPPath, "missing_code")
		return
	}

	if _, err := h.service.CompleteERPConnection(c.Request.Context(), state.TenantID, state.Resource, code); err != nil {
		h.logger.Warn("erp connect callback failed",
			zap.String("tenant_id", state.TenantID.String()),
			zap.Error(err))
		h.redirectWithError(c, providerKindERPPath, "exchange_failed")
		return
	}

	c.Redirect(http.StatusFound, h.appRedirectURL+"?connected="+providerKindERPPath)
}

// POSCallback godoc
// @Summary      Complete the POS OAuth flow
// @Description  Exchange endpoint for the POS redirect. The retailer's domain
// @Description  prefix arrives as a query parameter alongside the code.
// @Tags         connect
// @Param        code query string true "Authorization code"
// @Param        domain_prefix query string true "Retailer domain prefix"
// @Param        state query string true "Opaque state from the authorize URL"
// @Success      302 "Redirect to the application"
// @Router       /connect/vend/callback [get]
func (h *ConnectHandler) POSCallback(c *gin.Context) {
	state, err := decodeConnectState(c.Query("state"))
	if err != nil {
		h.redirectWithError(c, providerKindPOSPath, "invalid_state")
		return
	}

	code := c.Query("code")
	domainPrefix := c.Query("domain_prefix")
	if code == "" || domainPrefix == "" {
		h.redirectWithError(c, providerKindPOSPath, "missing_code")
		return
	}

	if _, err := h.service.CompletePOSConnection(c.Request.Context(), state.TenantID, domainPrefix, code); err != nil {
		h.logger.Warn("pos connect callback failed",
			zap.String("tenant_id", state.TenantID.String()),
			zap.Error(err))
		h.redirectWithError(c, providerKindPOSPath, "exchange_failed")
		return
	}

	c.Redirect(http.StatusFound, h.appRedirectURL+"?connected="+providerKindPOSPath)
}

func (h *ConnectHandler) redirectWithError(c *gin.Context, kind, reason string) {
	c.Redirect(http.StatusFound, h.appRedirectURL+"?connect_error="+kind+"&reason="+reason)
}

// SelectCompany godoc
// @Summary      Select the ERP company
// @Description  Records which ERP legal entity the tenant operates in.
// @Description  Subsequent inventory reads are filtered to this company.
// @Tags         connect
// @Accept       json
// @Success      204 "No Content"
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orgs/{id}/integrations/company [put]
func (h *ConnectHandler) SelectCompany(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid session")
		return
	}

	var req SelectCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if err := h.service.SelectCompany(c.Request.Context(), tenantID, req.CompanyID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Disconnect godoc
// @Summary      Disconnect a provider
// @Description  Removes the stored credential for the provider
// @Tags         connect
// @Param        kind path string true "Provider kind" Enums(msdynamics, vend)
// @Success      204 "No Content"
// @Security     BearerAuth
// @Router       /orgs/{id}/integrations/{kind} [delete]
func (h *ConnectHandler) Disconnect(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid session")
		return
	}

	provider, ok := providerFromPath(c.Param("kind"))
	if !ok {
		h.BadRequest(c, "Unknown provider kind")
		return
	}

	if err := h.service.Disconnect(c.Request.Context(), tenantID, provider); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// RegisterRoutes registers the connect and integration management routes
func (h *ConnectHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/connect/msdynamics/callback", h.ERPCallback)
	rg.GET("/connect/vend/callback", h.POSCallback)

	orgs := rg.Group("/orgs/:id")
	{
		orgs.GET("/connect/:kind/url", h.GetAuthorizationURL)
		orgs.PUT("/integrations/company", h.SelectCompany)
		orgs.DELETE("/integrations/:kind", h.Disconnect)
	}
}
