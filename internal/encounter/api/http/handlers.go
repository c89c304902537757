package http

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/louisbranch/initiative/internal/encounter/domain"
	"github.com/louisbranch/initiative/internal/encounter/service"
	apperrors "github.com/louisbranch/initiative/internal/platform/errors"
)

func (s *Server) handleCreateEncounter(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	encounter, err := s.svc.CreateEncounter(r.Context(), body.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newEncounterView(encounter))
}

func (s *Server) handleListEncounters(w http.ResponseWriter, r *http.Request) {
	pageSize := 20
	if raw := r.URL.Query().Get("pageSize"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, apperrors.New(apperrors.CodeRequestInvalid, "pageSize must be a positive integer"))
			return
		}
		pageSize = parsed
	}
	page, err := s.svc.ListEncounters(r.Context(), pageSize, r.URL.Query().Get("pageToken"))
	if err != nil {
		writeError(w, err)
		return
	}

	type summaryView struct {
		ID             string `json:"id"`
		Name           string `json:"name"`
		Status         string `json:"status"`
		Round          int    `json:"round"`
		CombatantCount int    `json:"combatantCount"`
	}
	response := struct {
		Encounters    []summaryView `json:"encounters"`
		NextPageToken string        `json:"nextPageToken,omitempty"`
	}{
		Encounters:    make([]summaryView, 0, len(page.Encounters)),
		NextPageToken: page.NextPageToken,
	}
	for _, summary := range page.Encounters {
		response.Encounters = append(response.Encounters, summaryView{
			ID:             summary.ID,
			Name:           summary.Name,
			Status:         summary.Status.String(),
			Round:          summary.Round,
			CombatantCount: summary.CombatantCount,
		})
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleGetEncounter(w http.ResponseWriter, r *http.Request) {
	encounter, err := s.svc.GetEncounter(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newEncounterView(encounter))
}

func (s *Server) handleDeleteEncounter(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteEncounter(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// addCombatantBody accepts either inline stats or a content record name.
type addCombatantBody struct {
	FromContent string `json:"fromContent,omitempty"`

	Name          string  `json:"name,omitempty"`
	HP            *int    `json:"hp,omitempty"`
	HPMax         int     `json:"hpMax,omitempty"`
	HPMaxModifier int     `json:"hpMaxModifier,omitempty"`
	ArmorClass    int     `json:"armorClass,omitempty"`
	Initiative    int     `json:"initiative,omitempty"`
	TieBreaker    float64 `json:"tieBreaker,omitempty"`
	InitiativeMod int     `json:"initiativeMod,omitempty"`
	Player        bool    `json:"player,omitempty"`
	LinkedTo      string  `json:"linkedTo,omitempty"`

	Concentrating    bool `json:"concentrating,omitempty"`
	ConcentrationMod int  `json:"concentrationMod,omitempty"`

	SpellSlots        []domain.SpellSlots      `json:"spellSlots,omitempty"`
	DailyUses         []domain.DailyUse        `json:"dailyUses,omitempty"`
	RechargeAbilities []domain.RechargeAbility `json:"rechargeAbilities,omitempty"`

	LegendaryPointsMax  int   `json:"legendaryPointsMax,omitempty"`
	LegendaryResistsMax int   `json:"legendaryResistsMax,omitempty"`
	LairInitiatives     []int `json:"lairInitiatives,omitempty"`
}

func (s *Server) handleAddCombatant(w http.ResponseWriter, r *http.Request) {
	encounterID := mux.Vars(r)["id"]
	var body addCombatantBody
	if !decodeBody(w, r, &body) {
		return
	}

	if body.FromContent != "" {
		encounter, err := s.svc.AddCombatantByName(r.Context(), encounterID, body.FromContent)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, newEncounterView(encounter))
		return
	}

	encounter, err := s.svc.AddCombatant(r.Context(), encounterID, domain.CreateCombatantInput{
		Name:                body.Name,
		HP:                  body.HP,
		HPMax:               body.HPMax,
		HPMaxModifier:       body.HPMaxModifier,
		ArmorClass:          body.ArmorClass,
		Initiative:          body.Initiative,
		TieBreaker:          body.TieBreaker,
		InitiativeMod:       body.InitiativeMod,
		Player:              body.Player,
		LinkedTo:            body.LinkedTo,
		Concentrating:       body.Concentrating,
		ConcentrationMod:    body.ConcentrationMod,
		SpellSlots:          body.SpellSlots,
		DailyUses:           body.DailyUses,
		RechargeAbilities:   body.RechargeAbilities,
		LegendaryPointsMax:  body.LegendaryPointsMax,
		LegendaryResistsMax: body.LegendaryResistsMax,
		LairInitiatives:     body.LairInitiatives,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newEncounterView(encounter))
}

type patchCombatantBody struct {
	Name               *string                  `json:"name,omitempty"`
	HPMaxModifier      *int                     `json:"hpMaxModifier,omitempty"`
	ArmorClass         *int                     `json:"armorClass,omitempty"`
	Initiative         *int                     `json:"initiative,omitempty"`
	TieBreaker         *float64                 `json:"tieBreaker,omitempty"`
	InitiativeMod      *int                     `json:"initiativeMod,omitempty"`
	LinkedTo           *string                  `json:"linkedTo,omitempty"`
	Concentrating      *bool                    `json:"concentrating,omitempty"`
	ConcentrationMod   *int                     `json:"concentrationMod,omitempty"`
	SpellSlots         []domain.SpellSlots      `json:"spellSlots,omitempty"`
	DailyUses          []domain.DailyUse        `json:"dailyUses,omitempty"`
	RechargeAbilities  []domain.RechargeAbility `json:"rechargeAbilities,omitempty"`
	LairInitiatives    []int                    `json:"lairInitiatives,omitempty"`
	ReactionUsed       *bool                    `json:"reactionUsed,omitempty"`
	DeathSaveSuccesses *int                     `json:"deathSaveSuccesses,omitempty"`
	DeathSaveFailures  *int                     `json:"deathSaveFailures,omitempty"`
}

func (s *Server) handleUpdateCombatant(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var body patchCombatantBody
	if !decodeBody(w, r, &body) {
		return
	}
	encounter, err := s.svc.UpdateCombatant(r.Context(), vars["id"], vars["combatantId"], domain.PatchCombatantInput{
		Name:               body.Name,
		HPMaxModifier:      body.HPMaxModifier,
		ArmorClass:         body.ArmorClass,
		Initiative:         body.Initiative,
		TieBreaker:         body.TieBreaker,
		InitiativeMod:      body.InitiativeMod,
		LinkedTo:           body.LinkedTo,
		Concentrating:      body.Concentrating,
		ConcentrationMod:   body.ConcentrationMod,
		SpellSlots:         body.SpellSlots,
		DailyUses:          body.DailyUses,
		RechargeAbilities:  body.RechargeAbilities,
		LairInitiatives:    body.LairInitiatives,
		ReactionUsed:       body.ReactionUsed,
		DeathSaveSuccesses: body.DeathSaveSuccesses,
		DeathSaveFailures:  body.DeathSaveFailures,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newEncounterView(encounter))
}

func (s *Server) handleRemoveCombatant(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	encounter, err := s.svc.RemoveCombatant(r.Context(), vars["id"], vars["combatantId"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newEncounterView(encounter))
}

func (s *Server) handleHPDelta(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var body struct {
		Kind   string `json:"kind"`
		Amount int    `json:"amount"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	var kind domain.HPDeltaKind
	switch body.Kind {
	case "heal":
		kind = domain.HPDeltaHeal
	case "damage":
		kind = domain.HPDeltaDamage
	case "set":
		kind = domain.HPDeltaSet
	default:
		writeError(w, apperrors.New(apperrors.CodeRequestInvalid, "kind must be heal, damage, or set"))
		return
	}

	encounter, transition, err := s.svc.ApplyHPDelta(r.Context(), vars["id"], vars["combatantId"], domain.HPDelta{
		Kind: kind, Amount: body.Amount,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	view := newEncounterView(encounter)
	writeJSON(w, http.StatusOK, struct {
		Encounter encounterView `json:"encounter"`
		HPBefore  int           `json:"hpBefore"`
		HPAfter   int           `json:"hpAfter"`
		Bloodied  bool          `json:"bloodied"`
	}{view, transition.HPBefore, transition.HPAfter, transition.Bloodied})
}

func (s *Server) encounterIntent(intent func(r *http.Request, id string) (domain.Encounter, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		encounter, err := intent(r, mux.Vars(r)["id"])
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newEncounterView(encounter))
	}
}

func (s *Server) handleStartCombat(w http.ResponseWriter, r *http.Request) {
	s.encounterIntent(func(r *http.Request, id string) (domain.Encounter, error) {
		return s.svc.StartCombat(r.Context(), id)
	})(w, r)
}

func (s *Server) handleEndCombat(w http.ResponseWriter, r *http.Request) {
	s.encounterIntent(func(r *http.Request, id string) (domain.Encounter, error) {
		return s.svc.EndCombat(r.Context(), id)
	})(w, r)
}

func (s *Server) handleResetCombat(w http.ResponseWriter, r *http.Request) {
	s.encounterIntent(func(r *http.Request, id string) (domain.Encounter, error) {
		return s.svc.ResetCombat(r.Context(), id)
	})(w, r)
}

func (s *Server) handleNextTurn(w http.ResponseWriter, r *http.Request) {
	s.encounterIntent(func(r *http.Request, id string) (domain.Encounter, error) {
		return s.svc.NextTurn(r.Context(), id)
	})(w, r)
}

func (s *Server) handlePrevTurn(w http.ResponseWriter, r *http.Request) {
	s.encounterIntent(func(r *http.Request, id string) (domain.Encounter, error) {
		return s.svc.PrevTurn(r.Context(), id)
	})(w, r)
}

type initiativeStatusView struct {
	Rolled  map[string]int    `json:"rolled"`
	Awaited []string          `json:"awaited"`
	Failed  map[string]string `json:"failed,omitempty"`
}

func newInitiativeStatusView(status service.InitiativeStatus) initiativeStatusView {
	return initiativeStatusView{Rolled: status.Rolled, Awaited: status.Awaited, Failed: status.Failed}
}

func (s *Server) handleBeginInitiative(w http.ResponseWriter, r *http.Request) {
	status, err := s.svc.BeginInitiative(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newInitiativeStatusView(status))
}

func (s *Server) handleSubmitInitiative(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CombatantID string   `json:"combatantId"`
		Initiative  int      `json:"initiative"`
		TieBreaker  *float64 `json:"tieBreaker,omitempty"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	status, err := s.svc.SubmitInitiative(r.Context(), mux.Vars(r)["id"], body.CombatantID, body.Initiative, body.TieBreaker)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newInitiativeStatusView(status))
}

func (s *Server) handleCommitInitiative(w http.ResponseWriter, r *http.Request) {
	encounter, err := s.svc.CommitInitiative(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newEncounterView(encounter))
}

func (s *Server) handleCancelInitiative(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.CancelInitiative(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListPrompts(w http.ResponseWriter, r *http.Request) {
	encounter, err := s.svc.GetEncounter(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	response := struct {
		Recharges     []rechargePromptView      `json:"recharges"`
		Concentration []concentrationPromptView `json:"concentration"`
	}{
		Recharges:     make([]rechargePromptView, 0, len(encounter.PendingRecharges)),
		Concentration: make([]concentrationPromptView, 0, len(encounter.PendingConcentration)),
	}
	for _, prompt := range encounter.PendingRecharges {
		response.Recharges = append(response.Recharges, rechargePromptView(prompt))
	}
	for _, prompt := range encounter.PendingConcentration {
		response.Concentration = append(response.Concentration, concentrationPromptView(prompt))
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleResolveRecharge(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var body struct {
		Total int `json:"total"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	encounter, err := s.svc.ResolveRecharge(r.Context(), vars["id"], vars["promptId"], body.Total)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newEncounterView(encounter))
}

func (s *Server) handleResolveConcentration(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var body struct {
		Total int `json:"total"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	encounter, err := s.svc.ResolveConcentration(r.Context(), vars["id"], vars["promptId"], body.Total)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newEncounterView(encounter))
}

func (s *Server) handleListContent(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Names []string `json:"names"`
	}{Names: s.library.Names()})
}
