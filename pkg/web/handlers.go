// Package web provides HTTP handlers and REST API endpoints for studio sessions.
package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukex/operion-studio/pkg/catalog"
	"github.com/dukex/operion-studio/pkg/editor"
	"github.com/dukex/operion-studio/pkg/models"
	"github.com/dukex/operion-studio/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	studio    *services.Studio
	catalog   *catalog.Catalog
	validator *validator.Validate
	logger    *slog.Logger
}

func NewAPIHandlers(
	studio *services.Studio,
	catalog *catalog.Catalog,
	validator *validator.Validate,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		studio:    studio,
		catalog:   catalog,
		validator: validator,
		logger:    logger.With("module", "web"),
	}
}

// RegisterRoutes mounts every studio endpoint on router.
func RegisterRoutes(router fiber.Router, h *APIHandlers) {
	router.Get("/health", h.HealthCheck)

	router.Get("/templates", h.GetTemplates)
	router.Get("/templates/categories", h.GetTemplateCategories)
	router.Get("/workflows", h.GetWorkflows)

	s := router.Group("/sessions")
	s.Post("/", h.OpenSession)
	s.Get("/:id", h.GetSession)
	s.Delete("/:id", h.CloseSession)
	s.Put("/:id/selection", h.UpdateSelection)
	s.Post("/:id/steps", h.InsertStep)
	s.Post("/:id/steps/:stepId/move", h.MoveStep)
	s.Post("/:id/steps/:stepId/duplicate", h.DuplicateStep)
	s.Delete("/:id/steps/:stepId", h.DeleteStep)
	s.Patch("/:id/steps/:stepId", h.UpdateStep)
	s.Put("/:id/trigger", h.ConfigureTrigger)
	s.Patch("/:id/workflow", h.UpdateWorkflow)
	s.Post("/:id/blur", h.Blur)
	s.Post("/:id/undo", h.Undo)
	s.Post("/:id/redo", h.Redo)
	s.Get("/:id/issues", h.GetIssues)
	s.Post("/:id/save", h.Save)
	s.Post("/:id/execute", h.Execute)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	catalogCheck, catalogOk := h.catalog.HealthCheck()
	repositoryCheck, repOk := h.studio.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Operion Studio is unhealthy"
	httpStatus := http.StatusInternalServerError

	if catalogOk && repOk {
		status = "healthy"
		message = "Operion Studio is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"catalog":    catalogCheck,
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetTemplates(c fiber.Ctx) error {
	templates := h.studio.Templates(catalog.Filter{
		Query:    c.Query("query"),
		Category: c.Query("category"),
	})

	return c.JSON(fiber.Map{
		"templates": templates,
		"count":     len(templates),
	})
}

func (h *APIHandlers) GetTemplateCategories(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"categories": append([]string{catalog.CategoryAll}, h.studio.Categories()...),
	})
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.studio.Workflows(c.Context())
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.JSON(fiber.Map{
		"workflows":   workflows,
		"total_count": len(workflows),
	})
}

func (h *APIHandlers) OpenSession(c fiber.Ctx) error {
	var req OpenSessionRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	state, err := h.studio.Open(c.Context(), req.LogicalName)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.Status(fiber.StatusCreated).JSON(state)
}

func (h *APIHandlers) GetSession(c fiber.Ctx) error {
	state, err := h.studio.State(c.Params("id"))
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.JSON(state)
}

func (h *APIHandlers) CloseSession(c fiber.Ctx) error {
	if err := h.studio.Close(c.Params("id")); err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) UpdateSelection(c fiber.Ctx) error {
	var req SelectionRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	if req.Selection == nil && req.Mode == nil {
		return badRequest(c, "selection or mode is required")
	}

	return h.edit(c, func(s *editor.Session) error {
		if req.Selection != nil {
			if err := s.Select(models.ParseSelection(*req.Selection)); err != nil {
				return err
			}
		}

		if req.Mode != nil {
			return s.SetMode(models.InsertMode(*req.Mode))
		}

		return nil
	})
}

func (h *APIHandlers) InsertStep(c fiber.Ctx) error {
	var req InsertStepRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	var stepID string

	state, err := h.studio.Edit(c.Params("id"), func(s *editor.Session) error {
		mode, selection := s.Mode(), s.Selection()

		if req.Mode != nil {
			mode = models.InsertMode(*req.Mode)
		}

		if req.Selection != nil {
			selection = models.ParseSelection(*req.Selection)
		}

		var err error

		stepID, err = s.InsertTemplateAt(req.TemplateID, mode, selection)

		return err
	})
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.Status(fiber.StatusCreated).JSON(StepResponse{StepID: stepID, Session: state})
}

func (h *APIHandlers) MoveStep(c fiber.Ctx) error {
	var req MoveStepRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	stepID := c.Params("stepId")

	return h.edit(c, func(s *editor.Session) error {
		return s.Move(stepID, models.ParseSelection(req.Target), models.InsertMode(req.Mode))
	})
}

func (h *APIHandlers) DuplicateStep(c fiber.Ctx) error {
	var copyID string

	state, err := h.studio.Edit(c.Params("id"), func(s *editor.Session) error {
		var err error

		copyID, err = s.Duplicate(c.Params("stepId"))

		return err
	})
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.Status(fiber.StatusCreated).JSON(StepResponse{StepID: copyID, Session: state})
}

func (h *APIHandlers) DeleteStep(c fiber.Ctx) error {
	stepID := c.Params("stepId")

	return h.edit(c, func(s *editor.Session) error {
		return s.Delete(stepID)
	})
}

// UpdateStep applies name, configuration and predicate edits as one undoable change. When any of
// them does not apply to the step the session is left unchanged.
func (h *APIHandlers) UpdateStep(c fiber.Ctx) error {
	var req UpdateStepRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	if req.Name == nil && len(req.Configuration) == 0 && req.Predicate == nil {
		return badRequest(c, "name, configuration or predicate is required")
	}

	stepID := c.Params("stepId")

	return h.edit(c, func(s *editor.Session) error {
		return s.UpdateStep(stepID, editor.StepPatch{
			Name:          req.Name,
			Configuration: req.Configuration,
			Predicate:     req.Predicate,
		})
	})
}

func (h *APIHandlers) ConfigureTrigger(c fiber.Ctx) error {
	var req ConfigureTriggerRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	return h.edit(c, func(s *editor.Session) error {
		s.ConfigureTrigger(models.Trigger{Type: req.Type, Configuration: req.Configuration})

		return nil
	})
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	var req UpdateWorkflowRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	return h.edit(c, func(s *editor.Session) error {
		s.UpdateSettings(editor.SettingsPatch{
			DisplayName: req.DisplayName,
			Description: req.Description,
			MaxAttempts: req.MaxAttempts,
			Enabled:     req.Enabled,
		})

		return nil
	})
}

// Blur ends the current run of coalesced field edits.
func (h *APIHandlers) Blur(c fiber.Ctx) error {
	return h.edit(c, func(s *editor.Session) error {
		s.Seal()

		return nil
	})
}

func (h *APIHandlers) Undo(c fiber.Ctx) error {
	return h.edit(c, func(s *editor.Session) error {
		return s.Undo()
	})
}

func (h *APIHandlers) Redo(c fiber.Ctx) error {
	return h.edit(c, func(s *editor.Session) error {
		return s.Redo()
	})
}

func (h *APIHandlers) GetIssues(c fiber.Ctx) error {
	state, err := h.studio.State(c.Params("id"))
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.JSON(IssuesResponse{
		Issues:     state.Issues,
		ErrorCount: state.ErrorCount,
		CanSave:    state.CanSave,
	})
}

func (h *APIHandlers) Save(c fiber.Ctx) error {
	var req SaveRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	state, err := h.studio.Save(c.Context(), c.Params("id"), req.Retry)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.JSON(state)
}

func (h *APIHandlers) Execute(c fiber.Ctx) error {
	var req ExecuteRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	result, state, err := h.studio.Execute(c.Context(), c.Params("id"), req.Payload, req.UseDraft, req.Retry)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.JSON(ExecuteResponse{Result: result, Session: state})
}

func (h *APIHandlers) edit(c fiber.Ctx, fn func(*editor.Session) error) error {
	state, err := h.studio.Edit(c.Params("id"), fn)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.JSON(state)
}

// bind decodes and validates a JSON body. An empty body leaves req at its zero value. When it
// reports false the problem response has been written and err is the result of sending it.
func (h *APIHandlers) bind(c fiber.Ctx, req any) (bool, error) {
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(req); err != nil {
			return false, badRequest(c, "Invalid JSON format")
		}
	}

	if err := h.validator.Struct(req); err != nil {
		return false, badRequest(c, err.Error())
	}

	return true, nil
}
