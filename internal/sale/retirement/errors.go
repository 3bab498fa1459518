package retirement

import (
	"fmt"

	id "sessionsale/pkg/domain"
	dErrors "sessionsale/pkg/domain-errors"
)

// Step names one stage of the protocol.
type Step string

const (
	StepNotify   Step = "notify"
	StepArchive  Step = "archive"
	StepRetire   Step = "retire"
	StepDelete   Step = "delete"
	StepComplete Step = "complete"
)

func (s Step) String() string {
	return string(s)
}

// PartialFailure reports a protocol run that stopped before the sale was
// completed. SecretDestroyed tells the operator whether the credential has
// already been retired, which decides the recovery path: a retry of the
// whole protocol when false, a completion-only retry when true.
//
// The error chain carries dErrors.CodeRetirementFailure ahead of the cause.
type PartialFailure struct {
	SaleID          id.SaleID
	CredentialID    id.CredentialID
	Step            Step
	SecretDestroyed bool
	Err             error

	coded error
}

func newPartialFailure(saleID id.SaleID, credentialID id.CredentialID, step Step, secretDestroyed bool, cause error) *PartialFailure {
	return &PartialFailure{
		SaleID:          saleID,
		CredentialID:    credentialID,
		Step:            step,
		SecretDestroyed: secretDestroyed,
		Err:             cause,
		coded:           dErrors.Wrap(cause, dErrors.CodeRetirementFailure, "retirement stopped at "+step.String()),
	}
}

func (e *PartialFailure) Error() string {
	return fmt.Sprintf("retirement of sale %s stopped at %s (secret destroyed: %t): %v",
		e.SaleID, e.Step, e.SecretDestroyed, e.Err)
}

func (e *PartialFailure) Unwrap() error {
	return e.coded
}
