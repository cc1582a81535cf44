package handler

import (
	"context"
	"net/http"

	"campusconnect/backend/internal/connection"
	"campusconnect/backend/internal/database"
	"campusconnect/backend/internal/hub"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// region --- DTOs ---

// ConnectionActionResponse is returned by every connection action.
type ConnectionActionResponse struct {
	Message string            `json:"message" example:"Connection request sent"`
	Status  connection.Status `json:"status" example:"pending_outgoing"`
	View    *connection.View  `json:"view"`
}

// ConnectionListResponse is one derived view of the caller's relations.
type ConnectionListResponse struct {
	View  connection.Filter `json:"view" example:"pending"`
	Users []UserSummary     `json:"users"`
}

// NotificationPayload identifies the user that triggered an event.
type NotificationPayload struct {
	From UserSummary `json:"from"`
}

// endregion

// region --- Connection Handlers ---

// ListConnections godoc
// @Summary      List relations
// @Description  Lists the caller's connections, incoming pending requests, or sent requests.
// @Tags         connections
// @Produce      json
// @Security     BearerAuth
// @Param        view  query     string  false  "connections (default), pending or sent"
// @Success      200   {object}  ConnectionListResponse
// @Failure      400   {object}  apperror.ErrorResponse
// @Failure      401   {object}  apperror.ErrorResponse
// @Router       /connections [get]
func ListConnections(c *gin.Context) {
	viewerID, err := currentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}
	filter, err := connection.ParseFilter(c.Query("view"))
	if err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	ids, err := connection.NewService(database.DB).List(ctx, viewerID, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	users, err := loadSummaries(ctx, ids)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ConnectionListResponse{View: filter, Users: users})
}

// SendRequest godoc
// @Summary      Send connection request
// @Description  Asks another user to connect. If they already asked the caller, the users become connected.
// @Tags         connections
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Target User ID"
// @Success      201  {object}  ConnectionActionResponse
// @Failure      400  {object}  apperror.ErrorResponse
// @Failure      401  {object}  apperror.ErrorResponse
// @Failure      404  {object}  apperror.ErrorResponse "Target user not found"
// @Failure      409  {object}  apperror.ErrorResponse "Request already sent or already connected"
// @Router       /connections/{id} [post]
func SendRequest(c *gin.Context) {
	runConnectionAction(c, (*connection.Service).Send, func(out connection.Outcome) (int, string) {
		if out.Accepted() {
			return http.StatusOK, "You are now connected"
		}
		return http.StatusCreated, "Connection request sent"
	})
}

// AcceptRequest godoc
// @Summary      Accept connection request
// @Description  Accepts the pending request the given user sent to the caller.
// @Tags         connections
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Requesting User ID"
// @Success      200  {object}  ConnectionActionResponse
// @Failure      400  {object}  apperror.ErrorResponse
// @Failure      401  {object}  apperror.ErrorResponse
// @Failure      404  {object}  apperror.ErrorResponse "Request not found"
// @Router       /connections/{id}/accept [post]
func AcceptRequest(c *gin.Context) {
	runConnectionAction(c, (*connection.Service).Accept, fixedMessage("Connection request accepted"))
}

// RejectRequest godoc
// @Summary      Reject connection request
// @Description  Rejects the pending request the given user sent to the caller.
// @Tags         connections
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Requesting User ID"
// @Success      200  {object}  ConnectionActionResponse
// @Failure      400  {object}  apperror.ErrorResponse
// @Failure      401  {object}  apperror.ErrorResponse
// @Failure      404  {object}  apperror.ErrorResponse "Request not found"
// @Router       /connections/{id}/reject [post]
func RejectRequest(c *gin.Context) {
	runConnectionAction(c, (*connection.Service).Reject, fixedMessage("Connection request rejected"))
}

// CancelRequest godoc
// @Summary      Cancel sent request
// @Description  Withdraws a request the caller sent to the given user.
// @Tags         connections
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Target User ID"
// @Success      200  {object}  ConnectionActionResponse
// @Failure      400  {object}  apperror.ErrorResponse
// @Failure      401  {object}  apperror.ErrorResponse
// @Failure      404  {object}  apperror.ErrorResponse "Request not found"
// @Router       /connections/{id}/cancel [post]
func CancelRequest(c *gin.Context) {
	runConnectionAction(c, (*connection.Service).Cancel, fixedMessage("Connection request cancelled"))
}

// RemoveConnection godoc
// @Summary      Remove connection
// @Description  Ends the connection with the given user. Removing a connection that does not exist succeeds.
// @Tags         connections
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Target User ID"
// @Success      200  {object}  ConnectionActionResponse
// @Failure      400  {object}  apperror.ErrorResponse
// @Failure      401  {object}  apperror.ErrorResponse
// @Router       /connections/{id}/remove [post]
func RemoveConnection(c *gin.Context) {
	runConnectionAction(c, (*connection.Service).Remove, fixedMessage("Connection removed"))
}

// endregion

type connectionAction func(s *connection.Service, ctx context.Context, actor, other uint) (connection.Outcome, error)

func fixedMessage(msg string) func(connection.Outcome) (int, string) {
	return func(connection.Outcome) (int, string) { return http.StatusOK, msg }
}

// runConnectionAction performs action from the caller towards the :id user,
// notifies the other user and responds with the caller-side view.
func runConnectionAction(c *gin.Context, action connectionAction, describe func(connection.Outcome) (int, string)) {
	actorID, err := currentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}
	otherID, err := parseIDParam(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	svc := connection.NewService(database.DB)

	out, err := action(svc, ctx, actorID, otherID)
	if err != nil {
		respondError(c, err)
		return
	}
	notifyConnectionChange(ctx, out, actorID, otherID)

	view, err := svc.View(ctx, actorID)
	if err != nil {
		respondError(c, err)
		return
	}

	status, message := describe(out)
	c.JSON(status, ConnectionActionResponse{
		Message: message,
		Status:  out.To.StatusFor(actorID),
		View:    view,
	})
}

// notifyConnectionChange tells other about a new request addressed to them, or
// about their request having been accepted.
func notifyConnectionChange(ctx context.Context, out connection.Outcome, actorID, otherID uint) {
	if !out.Changed {
		return
	}

	var eventType string
	switch {
	case out.Accepted():
		eventType = hub.EventConnectionAccepted
	case out.To.State == connection.StatePending && out.To.RequestedBy == actorID:
		eventType = hub.EventConnectionRequest
	default:
		return
	}

	actor, err := loadUser(ctx, actorID)
	if err != nil {
		zap.L().Warn("skipping notification", zap.Uint("user_id", actorID), zap.Error(err))
		return
	}
	hub.GlobalHub.Notify(otherID, hub.Event{
		Type:    eventType,
		Payload: NotificationPayload{From: summarize(*actor)},
	})
}
