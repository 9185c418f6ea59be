// Package testid holds the data-testid values the operator UI exposes to
// browser verification. The operator client and this harness must agree on
// every value here; bump ContractVersion when one is renamed.
package testid

import "fmt"

const ContractVersion = "1"

const (
	ConfigureMachine   = "button-configure-machine"
	Passcode           = "input-passcode"
	VerifyPasscode     = "button-verify-passcode"
	StartBatch         = "button-start-batch"
	ProductSearch      = "input-product-search"
	BatchProductSelect = "select-batch-product"
	PlannedQuantity    = "input-planned-quantity"
	ConfirmStartBatch  = "button-confirm-start-batch"
	ResumeProduction   = "button-resume-production"
)

// StoppageCausesHeading is the visible text of the h2 above the stoppage cause grid.
const (
	StoppageCausesTag     = "h2"
	StoppageCausesHeading = "Causas de Parada"
)

func SelectMachine(id int) string {
	return fmt.Sprintf("button-select-machine-%d", id)
}

func ProductOption(id int) string {
	return fmt.Sprintf("option-product-%d", id)
}

func Cause(id int) string {
	return fmt.Sprintf("button-cause-%d", id)
}
