package entity

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// DefaultScale is used when an item's scale cannot be resolved.
const DefaultScale uint8 = 18

// DefaultLabel is used when an item's label cannot be resolved.
const DefaultLabel = "UNKNOWN"

// ItemMetadata is the resolved description of one registry item.
type ItemMetadata struct {
	ItemIdentity              common.Address
	ResolvedReferenceIdentity common.Address
	Scale                     uint8
	Label                     string
	IsDerived                 bool
}

// FallbackMetadata describes an item whose reference could not be resolved:
// the item stands for itself with the default scale and label.
func FallbackMetadata(item common.Address) ItemMetadata {
	return ItemMetadata{
		ItemIdentity:              item,
		ResolvedReferenceIdentity: item,
		Scale:                     DefaultScale,
		Label:                     DefaultLabel,
		IsDerived:                 false,
	}
}

// QuantityResult is the owner's signed quantity for one reference identity.
type QuantityResult struct {
	ReferenceIdentity common.Address
	SignedQuantity    *big.Int
	Success           bool
}

// PositionEntry is one non-zero position in a report.
type PositionEntry struct {
	ReferenceIdentity   common.Address  `json:"referenceIdentity"`
	Label               string          `json:"label"`
	DerivedFromIdentity *common.Address `json:"derivedFromIdentity"`
	SignedQuantity      *big.Int        `json:"signedQuantity"`
	FormattedQuantity   string          `json:"formattedQuantity"`
	Scale               uint8           `json:"scale"`
}

// Summary aggregates counts for one resolution run.
type Summary struct {
	ItemsDiscovered          int           `json:"itemsDiscovered"`
	ItemsWithNonZeroQuantity int           `json:"itemsWithNonZeroQuantity"`
	ElapsedDuration          time.Duration `json:"elapsedDuration"`
}

// PositionReport is the final joined result of a resolution run.
type PositionReport struct {
	Owner    common.Address      `json:"owner"`
	Network  string              `json:"network"`
	Height   *big.Int            `json:"height,omitempty"`
	Entries  []PositionEntry     `json:"entries"`
	Summary  Summary             `json:"summary"`
	Warnings []ResolutionWarning `json:"warnings,omitempty"`
}

// ResolutionStage names the pipeline stage a warning came from.
type ResolutionStage string

const (
	StageMetadata ResolutionStage = "metadata"
	StageQuantity ResolutionStage = "quantity"
)

// ResolutionWarning records a non-fatal per-item failure that was absorbed
// by the fallback policy.
type ResolutionWarning struct {
	Stage        ResolutionStage `json:"stage"`
	ItemIdentity common.Address  `json:"itemIdentity"`
	Message      string          `json:"message"`
}

// OwnerResolution pairs one requested owner with its report or its error.
type OwnerResolution struct {
	Owner  string          `json:"owner"`
	Report *PositionReport `json:"report,omitempty"`
	Err    error           `json:"-"`
}
