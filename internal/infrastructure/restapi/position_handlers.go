package restapi

import (
	"errors"
	"net/http"

	"position_resolver/internal/app/port"
	"position_resolver/internal/domain/entity"
	"position_resolver/internal/pkg/utils"

	"github.com/gin-gonic/gin"
)

// APIPositionResponse is the envelope returned by the positions endpoint.
type APIPositionResponse struct {
	Data          *entity.PositionReport `json:"data,omitempty"`
	Error         string                 `json:"error,omitempty"`
	StatusMessage string                 `json:"status_message"`
}

// APINetwork describes one supported network.
type APINetwork struct {
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
	ChainID    uint64 `json:"chainId"`
	Registry   string `json:"registry"`
	Aggregator string `json:"aggregator"`
	Explorer   string `json:"explorer,omitempty"`
}

// PositionHandler serves resolution requests.
type PositionHandler struct {
	resolver port.PositionResolver
	logger   port.Logger
}

// NewPositionHandler creates a new instance of PositionHandler.
func NewPositionHandler(r port.PositionResolver, l port.Logger) *PositionHandler {
	return &PositionHandler{
		resolver: r,
		logger:   l,
	}
}

// GetPositionsHandler handles GET /positions/:owner?network=&block=.
func (h *PositionHandler) GetPositionsHandler(c *gin.Context) {
	owner := c.Param("owner")
	network := c.Query("network")

	height, err := utils.ParseBlockHeight(c.Query("block"))
	if err != nil {
		c.JSON(http.StatusBadRequest, APIPositionResponse{Error: err.Error(), StatusMessage: "Invalid request."})
		return
	}

	report, err := h.resolver.ResolvePositions(c.Request.Context(), owner, network, height)
	if err != nil {
		status, message := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("Position request failed", "owner", owner, "network", network, "error", err)
		}
		c.JSON(status, APIPositionResponse{Error: err.Error(), StatusMessage: message})
		return
	}

	response := APIPositionResponse{Data: report}
	switch {
	case len(report.Warnings) > 0:
		response.StatusMessage = "Positions resolved. Some items fell back to default values."
	case len(report.Entries) == 0:
		response.StatusMessage = "No positions found for this owner."
	default:
		response.StatusMessage = "Positions resolved successfully."
	}
	c.JSON(http.StatusOK, response)
}

// GetNetworksHandler handles GET /networks.
func (h *PositionHandler) GetNetworksHandler(c *gin.Context) {
	defs := h.resolver.Networks()
	networks := make([]APINetwork, 0, len(defs))
	for _, def := range defs {
		networks = append(networks, APINetwork{
			Identifier: def.Identifier,
			Name:       def.Name,
			ChainID:    def.ChainID,
			Registry:   def.RegistryAddress.Hex(),
			Aggregator: def.AggregatorAddress.Hex(),
			Explorer:   def.BlockExplorerURL,
		})
	}
	c.JSON(http.StatusOK, gin.H{"networks": networks})
}

// HealthHandler handles GET /healthz. It reports 503 when any open
// connection fails to return its head.
func (h *PositionHandler) HealthHandler(c *gin.Context) {
	networks := h.resolver.Health(c.Request.Context())
	status, label := http.StatusOK, "ok"
	for _, n := range networks {
		if !n.Healthy() {
			status, label = http.StatusServiceUnavailable, "degraded"
			break
		}
	}
	c.JSON(status, gin.H{"status": label, "networks": networks})
}

func statusFor(err error) (int, string) {
	var (
		valErr  *entity.ValidationError
		connErr *entity.ConnectivityError
		discErr *entity.DiscoveryError
	)
	switch {
	case errors.As(err, &valErr):
		return http.StatusBadRequest, "Invalid request."
	case errors.Is(err, entity.ErrTimeout):
		return http.StatusGatewayTimeout, "Resolution timed out."
	case errors.As(err, &connErr):
		return http.StatusBadGateway, "Network endpoint unreachable."
	case errors.As(err, &discErr):
		return http.StatusBadGateway, "Registry enumeration failed."
	default:
		return http.StatusInternalServerError, "Internal error."
	}
}
