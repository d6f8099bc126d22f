package team

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"reelcraft-server/modules/common/auth"
	"reelcraft-server/modules/common/model"
	"reelcraft-server/modules/common/org"
	"reelcraft-server/modules/common/utils"
)

type Handler struct {
	service *Service
	guard   *org.Guard
}

func NewHandler(service *Service, guard *org.Guard) *Handler {
	return &Handler{service: service, guard: guard}
}

// RegisterRoutes - 라우트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.Handle("/api/teams", h.guard.Authenticated(h.HandleCreate)).Methods("POST")
	r.Handle("/api/teams/{teamId}/invitations", h.guard.Require(model.RoleAdmin, h.HandleInvite)).Methods("POST")
	r.Handle("/api/teams/{teamId}/members", h.guard.Require(model.RoleMember, h.HandleMembers)).Methods("GET")
	r.Handle("/api/invitations/{token}/accept", h.guard.Authenticated(h.HandleAccept)).Methods("POST")
	log.Info("✅ Routes registered: /api/teams, /api/invitations")
}

// HandleCreate - POST /api/teams
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateTeamRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, utils.ErrCodeInvalidRequest, err.Error())
		return
	}

	team, err := h.service.CreateTeam(r.Context(), auth.UserFromContext(r.Context()), req.Name)
	if err != nil {
		log.Errorf("❌ %v", err)
		utils.WriteError(w, http.StatusInternalServerError, utils.ErrCodeInternal, "failed to create team")
		return
	}
	utils.WriteJSON(w, http.StatusCreated, team)
}

// HandleInvite - POST /api/teams/{teamId}/invitations
func (h *Handler) HandleInvite(w http.ResponseWriter, r *http.Request) {
	var req InviteRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, utils.ErrCodeInvalidRequest, err.Error())
		return
	}

	resp, err := h.service.Invite(r.Context(), org.MemberFromContext(r.Context()), req.Email, req.Role)
	switch {
	case errors.Is(err, ErrInvalidRole):
		utils.WriteError(w, http.StatusBadRequest, utils.ErrCodeInvalidRequest, err.Error())
	case errors.Is(err, ErrRoleNotAllowed):
		utils.WriteError(w, http.StatusForbidden, utils.ErrCodeForbidden, err.Error())
	case err != nil:
		log.Errorf("❌ %v", err)
		utils.WriteError(w, http.StatusInternalServerError, utils.ErrCodeInternal, "failed to create invitation")
	default:
		utils.WriteJSON(w, http.StatusCreated, resp)
	}
}

// HandleAccept - POST /api/invitations/{token}/accept
func (h *Handler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	member, err := h.service.Accept(r.Context(), auth.UserFromContext(r.Context()), mux.Vars(r)["token"])
	switch {
	case errors.Is(err, ErrInvitationNotFound):
		utils.WriteError(w, http.StatusNotFound, utils.ErrCodeNotFound, err.Error())
	case errors.Is(err, ErrInvitationUsed), errors.Is(err, ErrInvitationExpired):
		utils.WriteError(w, http.StatusGone, "INVITATION_INVALID", err.Error())
	case errors.Is(err, ErrInvitationEmailMismatch):
		utils.WriteError(w, http.StatusForbidden, utils.ErrCodeForbidden, err.Error())
	case err != nil:
		log.Errorf("❌ %v", err)
		utils.WriteError(w, http.StatusInternalServerError, utils.ErrCodeInternal, "failed to accept invitation")
	default:
		utils.WriteJSON(w, http.StatusOK, member)
	}
}

// HandleMembers - GET /api/teams/{teamId}/members
func (h *Handler) HandleMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.service.Members(r.Context(), org.TeamIDFromContext(r.Context()))
	if err != nil {
		log.Errorf("❌ %v", err)
		utils.WriteError(w, http.StatusInternalServerError, utils.ErrCodeInternal, "failed to list members")
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"members": members,
	})
}
