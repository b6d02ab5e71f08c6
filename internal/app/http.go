package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"huddle/api/internal/auth"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := s.service.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/session/login" {
		var body struct {
			Name string `json:"name"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		session, err := s.service.Login(r.Context(), body.Name)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "LOGIN_FAILED", "Login failed", nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"token":        session.Token,
			"refreshToken": session.RefreshToken,
			"userName":     session.UserName,
			"userId":       session.UserID,
		})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/session/refresh" {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		session, err := s.service.Refresh(r.Context(), body.RefreshToken)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Refresh token invalid", nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"token":        session.Token,
			"refreshToken": session.RefreshToken,
			"userName":     session.UserName,
		})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/session" {
		token := bearerToken(r)
		if token == "" {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "userName": nil})
			return
		}
		session, err := s.service.SessionFromToken(r.Context(), token)
		if err != nil {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "userName": nil})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"authenticated": true,
			"userName":      session.UserName,
			"userId":        session.UserID,
		})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/session/logout" {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = decodeBody(r, &body)
		_ = s.service.Logout(r.Context(), body.RefreshToken)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	caller := session.Caller()

	if r.Method == http.MethodPost && r.URL.Path == "/api/workspaces" {
		var body struct {
			Name string `json:"name"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.CreateWorkspace(r.Context(), caller, body.Name)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/workspaces/join" {
		var body struct {
			JoinCode string `json:"joinCode"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.JoinWorkspace(r.Context(), caller, body.JoinCode)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/messages" {
		var body CreateMessageInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		id, err := s.service.CreateMessage(r.Context(), caller, body)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/messages" {
		input := ListMessagesInput{
			ChannelID:       queryParam(r, "channelId"),
			ConversationID:  queryParam(r, "conversationId"),
			ParentMessageID: queryParam(r, "parentMessageId"),
			Cursor:          strings.TrimSpace(r.URL.Query().Get("cursor")),
		}
		limit, err := queryLimit(r)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be an integer", nil)
			return
		}
		input.Limit = limit

		payload, err := s.service.ListMessages(r.Context(), caller, input)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/threads" {
		var body CreateThreadInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		id, err := s.service.CreateThread(r.Context(), caller, body)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/notifications" {
		var body CreateNotificationInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		id, err := s.service.CreateNotification(r.Context(), body)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/notifications/mention" {
		var body CreateMentionInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		id, err := s.service.CreateMentionNotification(r.Context(), caller, body)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/notifications/subscription" {
		var body struct {
			UserID         string `json:"userId"`
			Success        bool   `json:"success"`
			SubscriptionID string `json:"subscriptionId"`
			Message        string `json:"message"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		id, err := s.service.CreateSubscriptionNotification(r.Context(), body.UserID, body.Success, body.SubscriptionID, body.Message)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/notifications/read-all" {
		updated, err := s.service.MarkAllNotificationsRead(r.Context(), caller)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"updated": updated})
		return
	}

	if r.Method == http.MethodDelete && r.URL.Path == "/api/notifications" {
		if err := s.service.DeleteAllNotifications(r.Context(), caller); err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if r.Method == http.MethodPut && r.URL.Path == "/api/status" {
		var body SetStatusInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if err := s.service.SetStatus(r.Context(), caller, body); err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/status/heartbeat" {
		if err := s.service.Heartbeat(r.Context(), caller); err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) < 2 || parts[0] != "api" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	switch parts[1] {
	case "workspaces":
		if s.routeWorkspaces(w, r, caller, parts[2:]) {
			return
		}
	case "channels":
		if s.routeChannels(w, r, caller, parts[2:]) {
			return
		}
	case "members":
		if s.routeMembers(w, r, caller, parts[2:]) {
			return
		}
	case "messages":
		if s.routeMessages(w, r, caller, parts[2:]) {
			return
		}
	case "threads":
		if s.routeThreads(w, r, caller, parts[2:]) {
			return
		}
	case "notifications":
		if s.routeNotifications(w, r, caller, parts[2:]) {
			return
		}
	case "users":
		if s.routeUsers(w, r, parts[2:]) {
			return
		}
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) routeWorkspaces(w http.ResponseWriter, r *http.Request, caller Caller, parts []string) bool {
	if len(parts) == 1 && r.Method == http.MethodGet {
		payload, err := s.service.GetWorkspaceInfo(r.Context(), caller, parts[0])
		if err != nil {
			s.fail(w, err)
			return true
		}
		writeJSON(w, http.StatusOK, payload)
		return true
	}

	if len(parts) != 2 && !(len(parts) == 3 && parts[1] == "members" && parts[2] == "current") &&
		!(len(parts) == 3 && parts[1] == "notifications" && parts[2] == "unread-count") {
		return false
	}

	workspaceID := parts[0]
	switch {
	case parts[1] == "join-code" && r.Method == http.MethodPost:
		code, err := s.service.NewJoinCode(r.Context(), caller, workspaceID)
		if err != nil {
			s.fail(w, err)
			return true
		}
		writeJSON(w, http.StatusOK, map[string]any{"joinCode": code})
		return true

	case parts[1] == "channels" && r.Method == http.MethodGet:
		items, err := s.service.ListChannels(r.Context(), caller, workspaceID)
		if err != nil {
			s.fail(w, err)
			return true
		}
		writeJSON(w, http.StatusOK, map[string]any{"channels": items})
		return true

	case parts[1] == "channels" && r.Method == http.MethodPost:
		var body struct {
			Name string `json:"name"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return true
		}
		id, err := s.service.CreateChannel(r.Context(), caller, workspaceID, body.Name)
		if err != nil {
			s.fail(w, err)
			return true
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id})
		return true

	case parts[1] == "conversations" && r.Method == http.MethodPost:
		var body struct {
			MemberID string `json:"memberId"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return true
		}
		payload, err := s.service.GetOrCreateConversation(r.Context(), caller, workspaceID, body.MemberID)
		if err != nil {
			s.fail(w, err)
			return true
		}
		writeJSON(w, http.StatusOK, payload)
		return true

	case parts[1] == "members" && len(parts) == 3 && r.Method == http.MethodGet:
		payload, err := s.service.CurrentMember(r.Context(), caller, workspaceID)
		if err != nil {
			s.fail(w, err)
			return true
		}
		writeJSON(w, http.StatusOK, map[string]any{"member": payload})
		return true

	case parts[1] == "members" && len(parts) == 2 && r.Method == http.MethodGet:
		items, err := s.service.ListWorkspaceMembers(r.Context(), caller, workspaceID)
		if err != nil {
			s.fail(w, err)
			return true
		}
		writeJSON(w, http.StatusOK, map[string]any{"members": items})
		return true

	case parts[1] == "threads" && r.Method == http.MethodGet:
		limit, err := queryLimit(r)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be an integer", nil)
			return true
		}
		payload, err := s.service.ListWorkspaceThreads(r.Context(), caller, workspaceID, strings.TrimSpace(r.URL.Query().Get("cursor")), limit)
		if err != nil {
			s.fail(w, err)
			return true
		}
		writeJSON(w, http.StatusOK, payload)
		return true

	case parts[1] == "notifications" && len(parts) == 3 && r.Method == http.MethodGet:
		count, err := s.service.UnreadCount(r.Context(), caller, workspaceID)
		if err != nil {
			s.fail(w, err)
			return true
		}
		writeJSON(w, http.StatusOK, map[string]any{"count": count})
		return true

	case parts[1] == "notifications" && len(parts) == 2 && r.Method == http.MethodGet:
		query, err := notificationQuery(r)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
			return true
		}
		items, err := s.service.ListWorkspaceNotifications(r.Context(), caller, workspaceID, query)
		if err != nil {
			s.fail(w, err)
			return true
		}
		writeJSON(w, http.StatusOK, map[string]any{"notifications": items})
		return true
	}
	return false
}

func (s *HTTPServer) routeChannels(w http.ResponseWriter, r *http.Request, caller Caller, parts []string) bool {
	if len(parts) != 1 {
		return false
	}
	channelID := parts[0]

	switch r.Method {
	case http.MethodGet:
		view, err := s.service.GetChannelInfo(r.Context(), caller, channelID)
		if err != nil {
			s.fail(w, err)
			return true
		}
		writeJSON(w, http.StatusOK, view)
		return true

	case http.MethodPut:
		var body struct {
			Name string `json:"name"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return true
		}
		if err := s.service.RenameChannel(r.Context(), caller, channelID, body.Name); err != nil {
			s.fail(w, err)
			return true
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return true

	case http.MethodDelete:
		if err := s.service.DeleteChannel(r.Context(), caller, channelID); err != nil {
			s.fail(w, err)
			return true
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return true
	}
	return false
}

func (s *HTTPServer) routeMembers(w http.ResponseWriter, r *http.Request, caller Caller, parts []string) bool {
	if len(parts) != 1 {
		return false
	}
	memberID := parts[0]

	switch r.Method {
	case http.MethodGet:
		payload, err := s.service.GetMemberInfo(r.Context(), caller, memberID)
		if err != nil {
			s.fail(w, err)
			return true
		}
		writeJSON(w, http.StatusOK, map[string]any{"member": payload})
		return true

	case http.MethodDelete:
		if err := s.service.RemoveMember(r.Context(), caller, memberID); err != nil {
			s.fail(w, err)
			return true
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return true
	}
	return false
}

func (s *HTTPServer) routeMessages(w http.ResponseWriter, r *http.Request, caller Caller, parts []string) bool {
	if len(parts) == 1 {
		messageID := parts[0]
		switch r.Method {
		case http.MethodGet:
			payload, err := s.service.GetMessage(r.Context(), caller, messageID)
			if err != nil {
				s.fail(w, err)
				return true
			}
			writeJSON(w, http.StatusOK, map[string]any{"message": payload})
			return true

		case http.MethodPut:
			var body struct {
				Body string `json:"body"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return true
			}
			if err := s.service.UpdateMessage(r.Context(), caller, messageID, body.Body); err != nil {
				s.fail(w, err)
				return true
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
			return true

		case http.MethodDelete:
			if err := s.service.DeleteMessage(r.Context(), caller, messageID); err != nil {
				s.fail(w, err)
				return true
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
			return true
		}
		return false
	}

	if len(parts) != 2 {
		return false
	}
	messageID := parts[0]

	switch {
	case parts[1] == "reactions" && r.Method == http.MethodPost:
		var body struct {
			Value string `json:"value"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return true
		}
		added, err := s.service.ToggleReaction(r.Context(), caller, messageID, body.Value)
		if err != nil {
			s.fail(w, err)
			return true
		}
		writeJSON(w, http.StatusOK, map[string]any{"added": added})
		return true

	case parts[1] == "thread" && r.Method == http.MethodGet:
		payload, err := s.service.GetThreadSummary(r.Context(), caller, messageID)
		if err != nil {
			s.fail(w, err)
			return true
		}
		writeJSON(w, http.StatusOK, map[string]any{"thread": payload})
		return true

	case parts[1] == "replies" && r.Method == http.MethodGet:
		limit, err := queryLimit(r)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be an integer", nil)
			return true
		}
		payload, err := s.service.ListThreadMessages(r.Context(), caller, messageID, strings.TrimSpace(r.URL.Query().Get("cursor")), limit)
		if err != nil {
			s.fail(w, err)
			return true
		}
		writeJSON(w, http.StatusOK, payload)
		return true
	}
	return false
}

func (s *HTTPServer) routeThreads(w http.ResponseWriter, r *http.Request, caller Caller, parts []string) bool {
	if len(parts) != 1 {
		return false
	}
	threadID := parts[0]

	switch r.Method {
	case http.MethodPut:
		var body struct {
			Title *string `json:"title"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return true
		}
		if err := s.service.UpdateThread(r.Context(), caller, threadID, body.Title); err != nil {
			s.fail(w, err)
			return true
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return true

	case http.MethodDelete:
		if err := s.service.DeleteThread(r.Context(), caller, threadID); err != nil {
			s.fail(w, err)
			return true
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return true
	}
	return false
}

func (s *HTTPServer) routeNotifications(w http.ResponseWriter, r *http.Request, caller Caller, parts []string) bool {
	if len(parts) == 2 && parts[1] == "read" && r.Method == http.MethodPost {
		if err := s.service.MarkNotificationReadOnView(r.Context(), caller, parts[0]); err != nil {
			s.fail(w, err)
			return true
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return true
	}

	if len(parts) == 1 && r.Method == http.MethodDelete {
		if err := s.service.DeleteNotification(r.Context(), caller, parts[0]); err != nil {
			s.fail(w, err)
			return true
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return true
	}
	return false
}

func (s *HTTPServer) routeUsers(w http.ResponseWriter, r *http.Request, parts []string) bool {
	if len(parts) == 2 && parts[1] == "status" && r.Method == http.MethodGet {
		payload, err := s.service.GetUserStatus(r.Context(), parts[0])
		if err != nil {
			s.fail(w, err)
			return true
		}
		writeJSON(w, http.StatusOK, payload)
		return true
	}
	return false
}

func (s *HTTPServer) fail(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	writeError(w, status, code, message, details)
}

func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) (Session, bool) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return Session{}, false
	}
	session, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) || errors.Is(err, auth.ErrInvalidToken) {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
			return Session{}, false
		}
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Session lookup failed", nil)
		return Session{}, false
	}
	return session, true
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func queryParam(r *http.Request, name string) *string {
	value := strings.TrimSpace(r.URL.Query().Get(name))
	if value == "" {
		return nil
	}
	return &value
}

func queryLimit(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func notificationQuery(r *http.Request) (NotificationQuery, error) {
	query := NotificationQuery{
		Type:       strings.TrimSpace(r.URL.Query().Get("type")),
		Source:     strings.TrimSpace(r.URL.Query().Get("source")),
		UnreadOnly: r.URL.Query().Get("unreadOnly") == "true",
	}
	limit, err := queryLimit(r)
	if err != nil {
		return NotificationQuery{}, fmt.Errorf("limit must be an integer")
	}
	query.Limit = limit

	for name, target := range map[string]**time.Time{
		"startDate": &query.StartDate,
		"endDate":   &query.EndDate,
	} {
		raw := strings.TrimSpace(r.URL.Query().Get(name))
		if raw == "" {
			continue
		}
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return NotificationQuery{}, fmt.Errorf("%s must be RFC3339", name)
		}
		*target = &parsed
	}
	return query, nil
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, sql.ErrNoRows) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken) {
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
