package orgs

import (
	"net/http"
	"time"

	apperrors "github.com/rulebookhq/rulebook/internal/platform/errors"
	"github.com/rulebookhq/rulebook/internal/services/orgs/invite"
	"github.com/rulebookhq/rulebook/internal/services/orgs/storage"
)

type organizationView struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

func toOrganizationView(org storage.Organization) organizationView {
	return organizationView{ID: org.ID, Slug: org.Slug, Name: org.Name}
}

type createInviteRequest struct {
	OrganizationID string `json:"organization_id"`
	ExpiresInDays  int    `json:"expires_in_days"`
	MaxUses        *int   `json:"max_uses,omitempty"`
	Role           string `json:"role"`
}

type createInviteResponse struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	Token          string `json:"token"`
	CreatedAt      string `json:"created_at"`
	ExpiresAt      string `json:"expires_at"`
	MaxUses        *int   `json:"max_uses,omitempty"`
	Role           string `json:"role"`
}

func (s *Server) handleCreateInvite(w http.ResponseWriter, r *http.Request) {
	actor, err := requireAdmin(r)
	if err != nil {
		writeJSONError(w, err)
		return
	}

	var req createInviteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, err)
		return
	}

	inv, err := s.service.CreateInvite(r.Context(), invite.CreateInviteInput{
		OrganizationID: req.OrganizationID,
		CreatedBy:      actor,
		ExpiresInDays:  req.ExpiresInDays,
		MaxUses:        req.MaxUses,
		Role:           invite.RoleFromLabel(req.Role),
	})
	if err != nil {
		writeJSONError(w, err)
		return
	}

	// The token is only returned here, at creation time.
	writeJSON(w, http.StatusCreated, createInviteResponse{
		ID:             inv.ID,
		OrganizationID: inv.OrganizationID,
		Token:          inv.Token,
		CreatedAt:      inv.CreatedAt.Format(time.RFC3339),
		ExpiresAt:      inv.ExpiresAt.Format(time.RFC3339),
		MaxUses:        inv.MaxUses,
		Role:           invite.RoleLabel(inv.Role),
	})
}

type validateInviteResponse struct {
	Valid        bool             `json:"valid"`
	Organization organizationView `json:"organization"`
	ExpiresAt    string           `json:"expires_at"`
	Role         string           `json:"role"`
	MaxUses      *int             `json:"max_uses,omitempty"`
	CurrentUses  int              `json:"current_uses"`
}

func (s *Server) handleValidateInvite(w http.ResponseWriter, r *http.Request) {
	validation, err := s.service.ValidateInvite(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		writeJSONError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, validateInviteResponse{
		Valid:        true,
		Organization: toOrganizationView(validation.Organization),
		ExpiresAt:    validation.ExpiresAt.Format(time.RFC3339),
		Role:         invite.RoleLabel(validation.Role),
		MaxUses:      validation.MaxUses,
		CurrentUses:  validation.CurrentUses,
	})
}

type redeemInviteRequest struct {
	Token      string `json:"token"`
	WasNewUser bool   `json:"was_new_user"`
}

type redeemInviteResponse struct {
	Success       bool             `json:"success"`
	AlreadyMember bool             `json:"already_member"`
	Organization  organizationView `json:"organization"`
	JoinGrant     string           `json:"join_grant,omitempty"`
}

func (s *Server) handleRedeemInvite(w http.ResponseWriter, r *http.Request) {
	caller := userID(r)
	if caller == "" {
		writeJSONError(w, apperrors.New(apperrors.CodeUnauthorized, "caller identity is required"))
		return
	}

	var req redeemInviteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, err)
		return
	}

	result, err := s.service.RedeemInvite(r.Context(), req.Token, caller, req.WasNewUser)
	if err != nil {
		writeJSONError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, redeemInviteResponse{
		Success:       true,
		AlreadyMember: result.AlreadyMember,
		Organization:  toOrganizationView(result.Organization),
		JoinGrant:     result.JoinGrant,
	})
}

func (s *Server) handleRevokeInvite(w http.ResponseWriter, r *http.Request) {
	actor, err := requireAdmin(r)
	if err != nil {
		writeJSONError(w, err)
		return
	}

	if err := s.service.RevokeInvite(r.Context(), r.PathValue("id"), actor); err != nil {
		writeJSONError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type inviteStatsResponse struct {
	TotalRedemptions int `json:"total_redemptions"`
	NewUsers         int `json:"new_users"`
	ExistingUsers    int `json:"existing_users"`
}

func (s *Server) handleInviteStats(w http.ResponseWriter, r *http.Request) {
	if _, err := requireAdmin(r); err != nil {
		writeJSONError(w, err)
		return
	}

	stats, err := s.service.GetInviteStats(r.Context(), r.PathValue("id"))
	if err != nil {
		writeJSONError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, inviteStatsResponse{
		TotalRedemptions: stats.TotalRedemptions,
		NewUsers:         stats.NewUsers,
		ExistingUsers:    stats.ExistingUsers,
	})
}

type inviteListingView struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	CreatedBy      string `json:"created_by"`
	CreatedAt      string `json:"created_at"`
	ExpiresAt      string `json:"expires_at"`
	MaxUses        *int   `json:"max_uses,omitempty"`
	CurrentUses    int    `json:"current_uses"`
	Role           string `json:"role"`
	State          string `json:"state"`
	RedemptionURL  string `json:"redemption_url"`
}

type listInvitesResponse struct {
	Invites []inviteListingView `json:"invites"`
}

func (s *Server) handleListInvites(w http.ResponseWriter, r *http.Request) {
	if _, err := requireAdmin(r); err != nil {
		writeJSONError(w, err)
		return
	}

	listings, err := s.service.ListOrganizationInvites(r.Context(), r.PathValue("id"), r.URL.Query().Get("filter"))
	if err != nil {
		writeJSONError(w, err)
		return
	}

	views := make([]inviteListingView, 0, len(listings))
	for _, listing := range listings {
		views = append(views, inviteListingView{
			ID:             listing.Invite.ID,
			OrganizationID: listing.Invite.OrganizationID,
			CreatedBy:      listing.Invite.CreatedBy,
			CreatedAt:      listing.Invite.CreatedAt.Format(time.RFC3339),
			ExpiresAt:      listing.Invite.ExpiresAt.Format(time.RFC3339),
			MaxUses:        listing.Invite.MaxUses,
			CurrentUses:    listing.Invite.CurrentUses,
			Role:           invite.RoleLabel(listing.Invite.Role),
			State:          invite.StateLabel(listing.State),
			RedemptionURL:  listing.RedemptionURL,
		})
	}
	writeJSON(w, http.StatusOK, listInvitesResponse{Invites: views})
}
