package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/taskboard/internal/activity"
	"github.com/frahmantamala/taskboard/internal/auth"
	"github.com/frahmantamala/taskboard/internal/board"
	"github.com/frahmantamala/taskboard/internal/project"
	"github.com/frahmantamala/taskboard/internal/rbac"
	"github.com/frahmantamala/taskboard/internal/transport/middleware"
	"github.com/frahmantamala/taskboard/internal/transport/swagger"
	"github.com/frahmantamala/taskboard/internal/user"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

// Handlers bundles every HTTP handler the router mounts.
type Handlers struct {
	Auth     *auth.Handler
	User     *user.Handler
	RBAC     *rbac.Handler
	Project  *project.Handler
	Board    *board.Handler
	Activity *activity.Handler
}

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, h Handlers, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	// OpenAPI spec and Swagger UI live at the root, outside the API prefix
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/register", h.Auth.Register)
			sr.Post("/register/verify", h.Auth.VerifyRegistration)
			sr.Post("/login", h.Auth.Login)
			sr.Post("/login/verify", h.Auth.VerifyLogin)
			sr.Post("/refresh", h.Auth.RefreshToken)
			sr.Post("/logout", h.Auth.Logout)
			sr.Post("/forgot-password", h.Auth.ForgotPassword)
			sr.Post("/reset-password", h.Auth.ResetPassword)
		})

		// Everything below requires a valid access token.
		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			pr.Get("/users/me", h.User.GetCurrentUser)
			pr.Patch("/users/me", h.User.UpdateCurrentUser)

			pr.Group(func(ar chi.Router) {
				ar.Use(middleware.RequirePermission(rbac.PermViewRole))
				ar.Get("/roles", h.RBAC.ListRoles)
				ar.Get("/roles/{id}", h.RBAC.GetRole)
				ar.Get("/permissions", h.RBAC.ListPermissions)
			})

			pr.Group(func(ar chi.Router) {
				ar.Use(middleware.RequirePermission(rbac.PermManageRole))
				ar.Post("/roles", h.RBAC.CreateRole)
				ar.Patch("/roles/{id}", h.RBAC.UpdateRole)
				ar.Delete("/roles/{id}", h.RBAC.DeleteRole)
				ar.Post("/roles/{id}/permissions", h.RBAC.AddPermissions)
				ar.Delete("/roles/{id}/permissions/{permID}", h.RBAC.RemovePermission)
				ar.Post("/users/{id}/roles", h.RBAC.AssignUserRole)
				ar.Delete("/users/{id}/roles/{roleID}", h.RBAC.RevokeUserRole)
			})

			pr.Post("/invitations/accept", h.Project.AcceptInvitation)

			pr.Route("/projects", func(pjr chi.Router) {
				pjr.Group(func(cr chi.Router) {
					cr.Use(middleware.RequirePermission(rbac.PermCreateProject))
					cr.Post("/", h.Project.CreateProject)
				})

				pjr.Group(func(vr chi.Router) {
					vr.Use(middleware.RequirePermission(rbac.PermViewProject))
					vr.Get("/", h.Project.ListProjects)
					vr.Get("/{id}", h.Project.GetProject)
					vr.Get("/{id}/members", h.Project.ListMembers)
				})

				pjr.Group(func(er chi.Router) {
					er.Use(middleware.RequirePermission(rbac.PermEditProject))
					er.Patch("/{id}", h.Project.UpdateProject)
					er.Delete("/{id}/members/{userID}", h.Project.RemoveMember)
				})

				pjr.Group(func(dr chi.Router) {
					dr.Use(middleware.RequirePermission(rbac.PermDeleteProject))
					dr.Delete("/{id}", h.Project.DeleteProject)
				})

				pjr.Group(func(ir chi.Router) {
					ir.Use(middleware.RequirePermission(rbac.PermInviteMember))
					ir.Post("/{id}/invitations", h.Project.InviteMember)
					ir.Get("/{id}/invitations", h.Project.ListInvitations)
				})

				pjr.Group(func(br chi.Router) {
					br.Use(middleware.RequirePermission(rbac.PermViewTask))
					br.Get("/{id}/board", h.Board.GetBoard)
					br.Get("/{id}/cards/{cardID}", h.Board.GetCard)
				})

				pjr.Group(func(cr chi.Router) {
					cr.Use(middleware.RequirePermission(rbac.PermManageColumn))
					cr.Post("/{id}/columns", h.Board.CreateColumn)
					cr.Patch("/{id}/columns/{columnID}", h.Board.RenameColumn)
					cr.Delete("/{id}/columns/{columnID}", h.Board.DeleteColumn)
					cr.Put("/{id}/columns/order", h.Board.ReorderColumns)
				})

				pjr.Group(func(tr chi.Router) {
					tr.Use(middleware.RequirePermission(rbac.PermCreateTask))
					tr.Post("/{id}/cards", h.Board.CreateCard)
				})

				pjr.Group(func(tr chi.Router) {
					tr.Use(middleware.RequirePermission(rbac.PermEditTask))
					tr.Patch("/{id}/cards/{cardID}", h.Board.UpdateCard)
					tr.Put("/{id}/cards/{cardID}/move", h.Board.MoveCard)
				})

				pjr.Group(func(tr chi.Router) {
					tr.Use(middleware.RequirePermission(rbac.PermDeleteTask))
					tr.Delete("/{id}/cards/{cardID}", h.Board.DeleteCard)
				})

				pjr.Group(func(acr chi.Router) {
					acr.Use(middleware.RequirePermission(rbac.PermViewActivity))
					acr.Get("/{id}/activities", h.Activity.ListActivities)
				})
			})
		})
	})
}
