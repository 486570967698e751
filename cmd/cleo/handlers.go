package main

import (
	"context"

	"github.com/google/uuid"

	"github.com/cleodev/cleo/internal/cerrors"
	"github.com/cleodev/cleo/internal/dispatch"
	"github.com/cleodev/cleo/internal/lifecycle"
	"github.com/cleodev/cleo/internal/orchestrate"
	"github.com/cleodev/cleo/internal/session"
	"github.com/cleodev/cleo/internal/store"
	"github.com/cleodev/cleo/internal/task"
	"github.com/cleodev/cleo/internal/validate"
)

// registerHandlers wires every dispatch operation to the engine method it
// delegates to. Grounded on internal/web/api.go's per-route registration:
// one small adapter per operation, no reflection or generic CRUD layer.
func registerHandlers(r *dispatch.Registry, tasks *task.Engine, lc *lifecycle.Engine, decisions *lifecycle.DecisionStore, sessions *session.Engine, orch *orchestrate.Orchestrator, tags *store.TagStore, manifest *validate.ManifestLog, compliance *validate.ComplianceLog) {
	r.Register(dispatch.Operation{Domain: dispatch.DomainTask, Kind: dispatch.KindMutate, Name: "add"},
		func(ctx context.Context, p dispatch.Params, rc dispatch.RequestContext) (interface{}, error) {
			t := &task.Task{
				Title:       str(p, "title"),
				Description: str(p, "description"),
				ParentID:    str(p, "parentId"),
				CreatedBy:   rc.AgentID,
			}
			return tasks.Add(ctx, t)
		})

	r.Register(dispatch.Operation{Domain: dispatch.DomainTask, Kind: dispatch.KindQuery, Name: "show"},
		func(ctx context.Context, p dispatch.Params, rc dispatch.RequestContext) (interface{}, error) {
			return tasks.Show(ctx, str(p, "id"))
		})

	r.Register(dispatch.Operation{Domain: dispatch.DomainTask, Kind: dispatch.KindQuery, Name: "list"},
		func(ctx context.Context, p dispatch.Params, rc dispatch.RequestContext) (interface{}, error) {
			return tasks.List(ctx, task.ListFilter{})
		})

	r.Register(dispatch.Operation{Domain: dispatch.DomainTask, Kind: dispatch.KindMutate, Name: "complete"},
		func(ctx context.Context, p dispatch.Params, rc dispatch.RequestContext) (interface{}, error) {
			return tasks.Complete(ctx, str(p, "id"))
		})

	r.Register(dispatch.Operation{Domain: dispatch.DomainTask, Kind: dispatch.KindMutate, Name: "cancel"},
		func(ctx context.Context, p dispatch.Params, rc dispatch.RequestContext) (interface{}, error) {
			return tasks.Cancel(ctx, str(p, "id"))
		})

	r.Register(dispatch.Operation{Domain: dispatch.DomainTask, Kind: dispatch.KindMutate, Name: "uncancel"},
		func(ctx context.Context, p dispatch.Params, rc dispatch.RequestContext) (interface{}, error) {
			return tasks.Uncancel(ctx, str(p, "id"))
		})

	r.Register(dispatch.Operation{Domain: dispatch.DomainTask, Kind: dispatch.KindMutate, Name: "delete"},
		func(ctx context.Context, p dispatch.Params, rc dispatch.RequestContext) (interface{}, error) {
			return nil, tasks.Delete(ctx, str(p, "id"))
		})

	r.Register(dispatch.Operation{Domain: dispatch.DomainTask, Kind: dispatch.KindMutate, Name: "archive"},
		func(ctx context.Context, p dispatch.Params, rc dispatch.RequestContext) (interface{}, error) {
			return nil, tasks.Archive(ctx, str(p, "id"), task.ArchiveManual)
		})

	r.Register(dispatch.Operation{Domain: dispatch.DomainTask, Kind: dispatch.KindMutate, Name: "start"},
		func(ctx context.Context, p dispatch.Params, rc dispatch.RequestContext) (interface{}, error) {
			return tasks.StartTask(ctx, str(p, "id"))
		})

	r.Register(dispatch.Operation{Domain: dispatch.DomainTask, Kind: dispatch.KindMutate, Name: "stop"},
		func(ctx context.Context, p dispatch.Params, rc dispatch.RequestContext) (interface{}, error) {
			return tasks.StopTask(ctx, str(p, "id"))
		})

	r.Register(dispatch.Operation{Domain: dispatch.DomainTask, Kind: dispatch.KindMutate, Name: "setgate"},
		func(ctx context.Context, p dispatch.Params, rc dispatch.RequestContext) (interface{}, error) {
			return tasks.SetGate(ctx, str(p, "id"), str(p, "gate"), boolean(p, "value"), str(p, "agent"), str(p, "note"))
		})

	r.Register(dispatch.Operation{Domain: dispatch.DomainTask, Kind: dispatch.KindQuery, Name: "ready"},
		func(ctx context.Context, p dispatch.Params, rc dispatch.RequestContext) (interface{}, error) {
			return orch.Ready(ctx)
		})

	r.Register(dispatch.Operation{Domain: dispatch.DomainTask, Kind: dispatch.KindQuery, Name: "next"},
		func(ctx context.Context, p dispatch.Params, rc dispatch.RequestContext) (interface{}, error) {
			return orch.Next(ctx)
		})

	r.Register(dispatch.Operation{Domain: dispatch.DomainTask, Kind: dispatch.KindQuery, Name: "status"},
		func(ctx context.Context, p dispatch.Params, rc dispatch.RequestContext) (interface{}, error) {
			return orch.Status(ctx, str(p, "id"))
		})

	r.Register(dispatch.Operation{Domain: dispatch.DomainTask, Kind: dispatch.KindQuery, Name: "waves"},
		func(ctx context.Context, p dispatch.Params, rc dispatch.RequestContext) (interface{}, error) {
			return orch.Waves(ctx)
		})

	r.Register(dispatch.Operation{Domain: dispatch.DomainTask, Kind: dispatch.KindQuery, Name: "validate"},
		func(ctx context.Context, p dispatch.Params, rc dispatch.RequestContext) (interface{}, error) {
			return orch.Validate(ctx)
		})

	r.Register(dispatch.Operation{Domain: dispatch.DomainTask, Kind: dispatch.KindQuery, Name: "health"},
		func(ctx context.Context, p dispatch.Params, rc dispatch.RequestContext) (interface{}, error) {
			return orch.ComputeHealth(ctx)
		})

	r.Register(dispatch.Operation{Domain: dispatch.DomainLifecycle, Kind: dispatch.KindMutate, Name: "start"},
		func(ctx context.Context, p dispatch.Params, rc dispatch.RequestContext) (interface{}, error) {
			return lc.StartPipeline(ctx, str(p, "epicId"))
		})

	r.Register(dispatch.Operation{Domain: dispatch.DomainLifecycle, Kind: dispatch.KindMutate, Name: "advance"},
		func(ctx context.Context, p dispatch.Params, rc dispatch.RequestContext) (interface{}, error) {
			return lc.AdvanceStage(ctx, str(p, "pipelineId"))
		})

	r.Register(dispatch.Operation{Domain: dispatch.DomainLifecycle, Kind: dispatch.KindMutate, Name: "skip"},
		func(ctx context.Context, p dispatch.Params, rc dispatch.RequestContext) (interface{}, error) {
			return lc.SkipStage(ctx, str(p, "pipelineId"), str(p, "reason"))
		})

	r.Register(dispatch.Operation{Domain: dispatch.DomainDecision, Kind: dispatch.KindMutate, Name: "propose"},
		func(ctx context.Context, p dispatch.Params, rc dispatch.RequestContext) (interface{}, error) {
			return decisions.Propose(ctx, str(p, "pipelineId"), str(p, "title"), str(p, "context"), str(p, "content"), str(p, "rationale"))
		})

	r.Register(dispatch.Operation{Domain: dispatch.DomainDecision, Kind: dispatch.KindMutate, Name: "accept"},
		func(ctx context.Context, p dispatch.Params, rc dispatch.RequestContext) (interface{}, error) {
			return decisions.Accept(ctx, str(p, "id"), rc.AgentID)
		})

	r.Register(dispatch.Operation{Domain: dispatch.DomainDecision, Kind: dispatch.KindMutate, Name: "supersede"},
		func(ctx context.Context, p dispatch.Params, rc dispatch.RequestContext) (interface{}, error) {
			return nil, cerrors.New(cerrors.CodeInvalidInput, "decision.supersede requires a fully-formed replacement decision; use the lifecycle client library rather than raw params")
		})

	r.Register(dispatch.Operation{Domain: dispatch.DomainDecision, Kind: dispatch.KindMutate, Name: "link"},
		func(ctx context.Context, p dispatch.Params, rc dispatch.RequestContext) (interface{}, error) {
			taskID := str(p, "taskId")
			decisionID := str(p, "decisionId")
			if err := decisions.LinkImplementingTask(ctx, taskID, decisionID); err != nil {
				return nil, err
			}
			return map[string]string{"taskId": taskID, "decisionId": decisionID}, nil
		})

	r.Register(dispatch.Operation{Domain: dispatch.DomainDecision, Kind: dispatch.KindQuery, Name: "list"},
		func(ctx context.Context, p dispatch.Params, rc dispatch.RequestContext) (interface{}, error) {
			return decisions.List(ctx, str(p, "pipelineId"))
		})

	r.Register(dispatch.Operation{Domain: dispatch.DomainDecision, Kind: dispatch.KindQuery, Name: "show"},
		func(ctx context.Context, p dispatch.Params, rc dispatch.RequestContext) (interface{}, error) {
			return decisions.Show(ctx, str(p, "id"))
		})

	r.Register(dispatch.Operation{Domain: dispatch.DomainSession, Kind: dispatch.KindMutate, Name: "begin"},
		func(ctx context.Context, p dispatch.Params, rc dispatch.RequestContext) (interface{}, error) {
			return sessions.Start(ctx, session.Scope{
				Type:               session.ScopeType(str(p, "scopeType")),
				RootTaskID:         str(p, "rootTaskId"),
				IncludeDescendants: true,
			}, rc.AgentID)
		})

	r.Register(dispatch.Operation{Domain: dispatch.DomainSession, Kind: dispatch.KindMutate, Name: "suspend"},
		func(ctx context.Context, p dispatch.Params, rc dispatch.RequestContext) (interface{}, error) {
			return sessions.Suspend(ctx, str(p, "id"))
		})

	r.Register(dispatch.Operation{Domain: dispatch.DomainSession, Kind: dispatch.KindMutate, Name: "resume"},
		func(ctx context.Context, p dispatch.Params, rc dispatch.RequestContext) (interface{}, error) {
			return sessions.Resume(ctx, str(p, "id"))
		})

	r.Register(dispatch.Operation{Domain: dispatch.DomainSession, Kind: dispatch.KindMutate, Name: "end"},
		func(ctx context.Context, p dispatch.Params, rc dispatch.RequestContext) (interface{}, error) {
			handoff := session.ComposeHandoff(&session.Session{}, str(p, "summary"), nil, nil)
			return sessions.End(ctx, str(p, "id"), handoff, nil)
		})

	r.Register(dispatch.Operation{Domain: dispatch.DomainTask, Kind: dispatch.KindMutate, Name: "tag"},
		func(ctx context.Context, p dispatch.Params, rc dispatch.RequestContext) (interface{}, error) {
			tagID := str(p, "tagId")
			if tagID == "" {
				name := str(p, "tagName")
				existing, err := tags.GetTagByName(ctx, name)
				if err != nil {
					return nil, err
				}
				if existing == nil {
					existing = &task.Tag{ID: uuid.NewString(), Name: name, Type: task.TagTypeGeneric}
					if err := tags.CreateTag(ctx, existing); err != nil {
						return nil, err
					}
				}
				tagID = existing.ID
			}
			return nil, tags.AttachTag(ctx, str(p, "id"), tagID)
		})

	r.Register(dispatch.Operation{Domain: dispatch.DomainTask, Kind: dispatch.KindMutate, Name: "untag"},
		func(ctx context.Context, p dispatch.Params, rc dispatch.RequestContext) (interface{}, error) {
			return nil, tags.DetachTag(ctx, str(p, "id"), str(p, "tagId"))
		})

	r.Register(dispatch.Operation{Domain: dispatch.DomainTask, Kind: dispatch.KindQuery, Name: "tags"},
		func(ctx context.Context, p dispatch.Params, rc dispatch.RequestContext) (interface{}, error) {
			return tags.TagsForTask(ctx, str(p, "id"))
		})

	r.Register(dispatch.Operation{Domain: dispatch.DomainValidate, Kind: dispatch.KindMutate, Name: "manifest"},
		func(ctx context.Context, p dispatch.Params, rc dispatch.RequestContext) (interface{}, error) {
			entry := validate.ManifestEntry{
				FilePath:   str(p, "filePath"),
				Title:      str(p, "title"),
				Status:     str(p, "status"),
				AgentType:  str(p, "agentType"),
				Actionable: boolean(p, "actionable"),
			}
			recorded, err := manifest.Record(ctx, entry)
			if err != nil {
				return nil, err
			}
			return map[string]interface{}{
				"entry":      recorded,
				"violations": validate.CheckProtocol(*recorded),
			}, nil
		})

	r.Register(dispatch.Operation{Domain: dispatch.DomainValidate, Kind: dispatch.KindQuery, Name: "protocol"},
		func(ctx context.Context, p dispatch.Params, rc dispatch.RequestContext) (interface{}, error) {
			entries, err := manifest.Persist().ListManifestByAgentType(ctx, str(p, "agentType"))
			if err != nil {
				return nil, err
			}
			violations := map[string][]validate.ProtocolViolation{}
			for _, e := range entries {
				if v := validate.CheckProtocol(*e); len(v) > 0 {
					violations[e.ID] = v
				}
			}
			return violations, nil
		})

	r.Register(dispatch.Operation{Domain: dispatch.DomainValidate, Kind: dispatch.KindQuery, Name: "task"},
		func(ctx context.Context, p dispatch.Params, rc dispatch.RequestContext) (interface{}, error) {
			t, err := tasks.Show(ctx, str(p, "id"))
			if err != nil {
				return nil, err
			}
			parentDepth := 0
			if t.ParentID != "" {
				parentDepth = 1 // the real depth is not recomputed here, so the max-depth rule is not re-checked on read; the engine enforced MaxDepth on write
			}
			violations := validate.TaskInvariants(t, parentDepth)
			record, err := compliance.Record(ctx, "task", t.ID, violations)
			if err != nil {
				return nil, err
			}
			return record, nil
		})
}

// registerSchemas attaches FieldSpecs to the operations whose params are
// easy to get subtly wrong (missing an id, wrong gate name) so dispatch
// rejects malformed calls before they reach a handler.
func registerSchemas(s *validate.SchemaRegistry) {
	s.Register("task.add", validate.FieldSpec{Name: "title", Required: true, Kind: validate.KindString})
	s.Register("task.show", validate.FieldSpec{Name: "id", Required: true, Kind: validate.KindString})
	s.Register("task.complete", validate.FieldSpec{Name: "id", Required: true, Kind: validate.KindString})
	s.Register("task.cancel", validate.FieldSpec{Name: "id", Required: true, Kind: validate.KindString})
	s.Register("task.delete", validate.FieldSpec{Name: "id", Required: true, Kind: validate.KindString})
	s.Register("task.setgate",
		validate.FieldSpec{Name: "id", Required: true, Kind: validate.KindString},
		validate.FieldSpec{Name: "gate", Required: true, Kind: validate.KindString},
		validate.FieldSpec{Name: "value", Required: true, Kind: validate.KindBool},
	)
	s.Register("lifecycle.start", validate.FieldSpec{Name: "epicId", Required: true, Kind: validate.KindString})
	s.Register("lifecycle.advance", validate.FieldSpec{Name: "pipelineId", Required: true, Kind: validate.KindString})
	s.Register("decision.propose",
		validate.FieldSpec{Name: "pipelineId", Required: true, Kind: validate.KindString},
		validate.FieldSpec{Name: "title", Required: true, Kind: validate.KindString},
	)
	s.Register("decision.accept", validate.FieldSpec{Name: "id", Required: true, Kind: validate.KindString})
	s.Register("decision.link",
		validate.FieldSpec{Name: "taskId", Required: true, Kind: validate.KindString},
		validate.FieldSpec{Name: "decisionId", Required: true, Kind: validate.KindString},
	)
	s.Register("task.tag", validate.FieldSpec{Name: "id", Required: true, Kind: validate.KindString})
	s.Register("task.untag",
		validate.FieldSpec{Name: "id", Required: true, Kind: validate.KindString},
		validate.FieldSpec{Name: "tagId", Required: true, Kind: validate.KindString},
	)
	s.Register("validate.manifest",
		validate.FieldSpec{Name: "filePath", Required: true, Kind: validate.KindString},
		validate.FieldSpec{Name: "agentType", Required: true, Kind: validate.KindString},
	)
	s.Register("validate.task", validate.FieldSpec{Name: "id", Required: true, Kind: validate.KindString})
	s.Register("session.begin", validate.FieldSpec{Name: "scopeType", Required: true, Kind: validate.KindString})
	s.Register("session.end", validate.FieldSpec{Name: "id", Required: true, Kind: validate.KindString})
}

func str(p dispatch.Params, key string) string {
	v, _ := p[key].(string)
	return v
}

func boolean(p dispatch.Params, key string) bool {
	v, _ := p[key].(bool)
	return v
}
