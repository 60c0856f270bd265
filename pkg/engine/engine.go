// Package engine wires the Interpret/Integrate/Select/Generate pipeline of
// spec §4.1/§5 together: the Integrate and Select rule sets of pkg/rules,
// the grounding reaction rules of pkg/grounding, the adapter boundary of
// pkg/adapter, and the invariant checks of pkg/istate. A Engine is
// process-local and domain-parametric — it closes over one domain.Model and
// one config.EngineConfig, and can drive any number of independent sessions
// concurrently (spec §5 "Multiple concurrent sessions").
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/ibdm-project/ibdm/pkg/adapter"
	"github.com/ibdm-project/ibdm/pkg/config"
	"github.com/ibdm-project/ibdm/pkg/dialogueact"
	"github.com/ibdm-project/ibdm/pkg/domain"
	"github.com/ibdm-project/ibdm/pkg/enginelog"
	"github.com/ibdm-project/ibdm/pkg/grounding"
	"github.com/ibdm-project/ibdm/pkg/istate"
	"github.com/ibdm-project/ibdm/pkg/rules"
	"github.com/ibdm-project/ibdm/pkg/rules/integrate"
	"github.com/ibdm-project/ibdm/pkg/rules/selectrules"
)

// Engine drives one turn of the dialogue at a time for whichever
// InformationState is handed to Turn; it holds no per-session state itself.
type Engine struct {
	domain      domain.Model
	config      config.EngineConfig
	integrateSet *rules.Set
	selectSet   *rules.Set
	nlu         adapter.NLU
	nlg         adapter.NLG
	device      adapter.Device
	log         *enginelog.Logger
}

// New builds an Engine for one domain and configuration. device may be nil
// if the domain has no Perform steps to execute.
func New(model domain.Model, cfg config.EngineConfig, nlu adapter.NLU, nlg adapter.NLG, device adapter.Device, log *enginelog.Logger) *Engine {
	if log == nil {
		log = enginelog.New(nil)
	}
	integrateRules := append(integrate.Rules(model), grounding.Rules(cfg)...)
	return &Engine{
		domain:       model,
		config:       cfg,
		integrateSet: rules.NewSet(integrateRules),
		selectSet:    rules.NewSet(selectrules.Rules(model)),
		nlu:          nlu,
		nlg:          nlg,
		device:       device,
		log:          log,
	}
}

// Turn processes one inbound utterance to completion: Interpret, Integrate
// to a fixpoint per inbound move, Select to a fixpoint, then Generate an
// utterance for every move left on the agenda. It returns the updated
// Information State and the rendered utterances, in agenda order.
func (e *Engine) Turn(ctx context.Context, s istate.InformationState, utterance string) (istate.InformationState, []string, error) {
	snap := newSnapshot(s)
	now := time.Now()

	moves, err := e.nlu.Interpret(ctx, utterance, s)
	if err != nil {
		e.log.AdapterFailure("nlu", s.AgentID, err)
		moves = []dialogueact.Move{dialogueact.NewMove(dialogueact.MoveUninterpretable, nil, "user", 0, now)}
	}

	current := s
	for _, m := range moves {
		if m.Kind == dialogueact.MoveUninterpretable {
			m.Kind = dialogueact.MoveICMPerNeg
		}

		next, err := e.runIntegrate(ctx, current, m, now)
		if err != nil {
			var budgetErr *RuleBudgetError
			var invErr *InvariantError
			if errors.As(err, &budgetErr) || errors.As(err, &invErr) {
				e.log.TurnRolledBack(s.AgentID, err)
				return snap.restore(), nil, err
			}
			// DomainContractError: degrade to a fallback response for this
			// move only, leave the dialogue active (spec §7 kind 3).
			var contractErr *DomainContractError
			if errors.As(err, &contractErr) {
				current = current.Clone()
				cannotHelp := dialogueact.NewProposition("cannot_help")
				current.Private.Agenda = append(current.Private.Agenda,
					dialogueact.NewMove(dialogueact.MoveAssert, cannotHelp, current.AgentID, 1.0, now))
				continue
			}
			return snap.restore(), nil, err
		}
		current = next
	}

	current, err = e.runSelect(ctx, current, now)
	if err != nil {
		var contractErr *DomainContractError
		if !errors.As(err, &contractErr) {
			e.log.TurnRolledBack(s.AgentID, err)
			return snap.restore(), nil, err
		}
		// DomainContractError: keep the integrated state, answer with the
		// fallback response, leave the dialogue active (spec §7 kind 3).
		current = current.Clone()
		cannotHelp := dialogueact.NewProposition("cannot_help")
		current.Private.Agenda = append(current.Private.Agenda,
			dialogueact.NewMove(dialogueact.MoveAssert, cannotHelp, current.AgentID, 1.0, now))
	}

	utterances, current := e.generate(ctx, current)
	return current, utterances, nil
}

func (e *Engine) runIntegrate(ctx context.Context, s istate.InformationState, inbound dialogueact.Move, now time.Time) (istate.InformationState, error) {
	rc := rules.Context{
		Ctx:     ctx,
		State:   s,
		Domain:  e.domain,
		Config:  e.config,
		Device:  e.device,
		Now:     now,
		Inbound: &inbound,
		Staging: rules.Staging{},
	}
	next, result, err := e.integrateSet.RunFixpoint(rules.PhaseIntegrate, rc, e.config.MaxPhaseIterations)
	if err != nil {
		if errors.Is(err, rules.ErrPhaseBudgetExceeded) {
			return s, &RuleBudgetError{SessionID: s.AgentID, Phase: string(rules.PhaseIntegrate), Err: err}
		}
		// No Integrate-phase rule calls the Device adapter; any other
		// error here is a Domain Model contract violation (e.g. BuildPlan).
		return s, &DomainContractError{SessionID: s.AgentID, Operation: "integrate", Err: err}
	}
	e.log.PhaseFixpoint(string(rules.PhaseIntegrate), s.AgentID, result.Iterations)

	if err := istate.Validate(next.State, e.domain); err != nil {
		return s, &InvariantError{SessionID: s.AgentID, Err: err}
	}
	return next.State, nil
}

func (e *Engine) runSelect(ctx context.Context, s istate.InformationState, now time.Time) (istate.InformationState, error) {
	rc := rules.Context{
		Ctx:    ctx,
		State:  s,
		Domain: e.domain,
		Config: e.config,
		Device: e.device,
		Now:    now,
	}
	next, result, err := e.selectSet.RunFixpoint(rules.PhaseSelect, rc, e.config.MaxPhaseIterations)
	if err != nil {
		if errors.Is(err, rules.ErrPhaseBudgetExceeded) {
			return s, &RuleBudgetError{SessionID: s.AgentID, Phase: string(rules.PhaseSelect), Err: err}
		}
		if errors.Is(err, adapter.ErrAdapterFailure) {
			// Device execution failed: soft failure, don't roll the whole
			// turn back — the rule itself never committed a change.
			e.log.AdapterFailure("device", s.AgentID, err)
			deferred := s.Clone()
			icmMove := dialogueact.NewMove(dialogueact.MoveICMPerNeg, nil, s.AgentID, 1.0, now)
			deferred.Private.Agenda = append(deferred.Private.Agenda, icmMove)
			return deferred, nil
		}
		return s, &DomainContractError{SessionID: s.AgentID, Operation: "select", Err: err}
	}
	e.log.PhaseFixpoint(string(rules.PhaseSelect), s.AgentID, result.Iterations)

	if err := istate.Validate(next.State, e.domain); err != nil {
		return s, &InvariantError{SessionID: s.AgentID, Err: err}
	}
	return next.State, nil
}

// generate renders every move left on the agenda (spec §4.1 Generate
// phase), appends them to shared.moves, and clears the agenda.
func (e *Engine) generate(ctx context.Context, s istate.InformationState) ([]string, istate.InformationState) {
	next := s.Clone()
	agenda := next.Private.Agenda
	next.Private.Agenda = nil

	utterances := make([]string, 0, len(agenda))
	for _, m := range agenda {
		template := ""
		if q, ok := m.AsQuestion(); ok {
			template = e.domain.QuestionTemplate(q)
		}
		text, err := e.nlg.Render(ctx, m, next, template)
		if err != nil {
			e.log.AdapterFailure("nlg", next.AgentID, err)
			text = "(unable to render response)"
		}
		utterances = append(utterances, text)
		next.Shared.Moves = append(next.Shared.Moves, m)
	}
	return utterances, next
}
