// Package errors provides structured error handling for encounter state.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Combatant errors
	CodeCombatantNameEmpty         Code = "COMBATANT_NAME_EMPTY"
	CodeCombatantInvalidHP         Code = "COMBATANT_INVALID_HP"
	CodeCombatantInvalidMaxHP      Code = "COMBATANT_INVALID_MAX_HP"
	CodeCombatantInvalidTempHP     Code = "COMBATANT_INVALID_TEMP_HP"
	CodeCombatantInvalidLegendary  Code = "COMBATANT_INVALID_LEGENDARY"
	CodeCombatantInvalidDeathSaves Code = "COMBATANT_INVALID_DEATH_SAVES"
	CodeCombatantLinkUnknown       Code = "COMBATANT_LINK_UNKNOWN"
	CodeCombatantNotFound          Code = "COMBATANT_NOT_FOUND"

	// Encounter errors
	CodeEncounterNotFound        Code = "ENCOUNTER_NOT_FOUND"
	CodeEncounterEmptySequence   Code = "ENCOUNTER_EMPTY_SEQUENCE"
	CodeEncounterCompleted       Code = "ENCOUNTER_COMPLETED"
	CodeEncounterInvalidStatus   Code = "ENCOUNTER_INVALID_STATUS_TRANSITION"
	CodeEncounterNameEmpty       Code = "ENCOUNTER_NAME_EMPTY"
	CodeEncounterInvalidHPDelta  Code = "ENCOUNTER_INVALID_HP_DELTA"
	CodeEncounterPromptNotFound  Code = "ENCOUNTER_PROMPT_NOT_FOUND"
	CodeEncounterRollInProgress  Code = "ENCOUNTER_INITIATIVE_ROLL_IN_PROGRESS"
	CodeEncounterRollNotStarted  Code = "ENCOUNTER_INITIATIVE_ROLL_NOT_STARTED"
	CodeEncounterRollValueMissing Code = "ENCOUNTER_INITIATIVE_VALUE_MISSING"

	// Recharge errors
	CodeRechargeRangeInvalid Code = "RECHARGE_RANGE_INVALID"

	// Transport errors
	CodeRequestInvalid Code = "REQUEST_INVALID"

	// Collaborator errors
	CodeDiceNotationInvalid Code = "DICE_NOTATION_INVALID"
	CodeDiceUnavailable     Code = "DICE_UNAVAILABLE"
	CodeStorageUnavailable  Code = "STORAGE_UNAVAILABLE"
	CodeContentNotFound     Code = "CONTENT_NOT_FOUND"
)

// HTTPStatus maps an error code to the HTTP status the API layer returns.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeCombatantNotFound, CodeEncounterNotFound, CodeEncounterPromptNotFound, CodeContentNotFound:
		return http.StatusNotFound
	case CodeEncounterCompleted, CodeEncounterInvalidStatus, CodeEncounterRollInProgress, CodeEncounterRollNotStarted:
		return http.StatusConflict
	case CodeStorageUnavailable, CodeDiceUnavailable:
		return http.StatusServiceUnavailable
	case CodeUnknown:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
