// ABOUTME: HTTP API handlers for the unified inbox: chats, manager actions, agent profile, knowledge
// ABOUTME: Maps store errors onto status codes: not found 404, validation 400, storage 500

package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Valey88/Profit-AI/internal/store"
)

// MessageResponse is the JSON shape of one message.
type MessageResponse struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// ContactResponse is the JSON shape of a conversation's contact.
type ContactResponse struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Phone   string   `json:"phone,omitempty"`
	Email   string   `json:"email,omitempty"`
	Notes   string   `json:"notes,omitempty"`
	History []string `json:"history,omitempty"`
}

// ConversationResponse is the JSON shape of a conversation with its
// relations.
type ConversationResponse struct {
	ID          string            `json:"id"`
	Channel     string            `json:"channel"`
	ExternalID  string            `json:"external_id"`
	Mode        string            `json:"mode"`
	ItemLabel   string            `json:"item_label,omitempty"`
	UnreadCount int               `json:"unread_count"`
	CreatedAt   string            `json:"created_at"`
	UpdatedAt   string            `json:"updated_at"`
	Messages    []MessageResponse `json:"messages"`
	Contact     *ContactResponse  `json:"contact,omitempty"`
}

// ConversationCreateRequest is the JSON request body for POST /api/chats.
// Get-or-create by (channel, external_id): the web widget posts its visitor
// id here before opening the websocket.
type ConversationCreateRequest struct {
	Channel     string `json:"channel"`
	ExternalID  string `json:"external_id"`
	ContactName string `json:"contact_name,omitempty"`
	ItemLabel   string `json:"item_label,omitempty"`
}

// ModeUpdateRequest is the JSON request body for PUT /api/chats/{id}/mode.
type ModeUpdateRequest struct {
	Mode string `json:"mode"`
}

// ContactUpdateRequest is the JSON request body for PUT /api/chats/{id}/contact.
// Absent fields are left unchanged.
type ContactUpdateRequest struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
	Email *string `json:"email"`
	Notes *string `json:"notes"`
}

// InteractionRequest is the JSON request body for POST
// /api/chats/{id}/interactions: one line appended to the contact's
// interaction log.
type InteractionRequest struct {
	Summary string `json:"summary"`
}

// NotesUpdateRequest is the JSON request body for PUT /api/chats/{id}/notes.
type NotesUpdateRequest struct {
	Notes string `json:"notes"`
}

// MessageCreateRequest is the JSON request body for POST /api/chats/{id}/messages.
type MessageCreateRequest struct {
	Content string `json:"content"`
}

// SendRequest is the JSON request body for POST /api/chats/send.
type SendRequest struct {
	ChatID  string `json:"chat_id"`
	Content string `json:"content"`
	Context string `json:"context,omitempty"`
}

// SendResponse is the JSON response for the combined send operation.
// AIResponse is null when the conversation mode suppressed the reply.
type SendResponse struct {
	UserMessage      MessageResponse  `json:"user_message"`
	AIResponse       *MessageResponse `json:"ai_response"`
	Intent           string           `json:"intent,omitempty"`
	SuggestedActions []string         `json:"suggested_actions,omitempty"`
}

// AgentProfileRequest is the JSON body for PUT /api/agent/profile.
type AgentProfileRequest struct {
	Name         string          `json:"name"`
	Role         string          `json:"role"`
	Tone         string          `json:"tone"`
	SystemPrompt string          `json:"system_prompt"`
	Skills       map[string]bool `json:"skills,omitempty"`
}

// AgentProfileResponse is the JSON shape of the agent profile.
type AgentProfileResponse struct {
	Name         string          `json:"name"`
	Role         string          `json:"role"`
	Tone         string          `json:"tone"`
	SystemPrompt string          `json:"system_prompt"`
	Skills       map[string]bool `json:"skills,omitempty"`
	UpdatedAt    string          `json:"updated_at,omitempty"`
}

// KnowledgeDocRequest is the JSON body for POST /api/agent/knowledge.
// Adapters submit already-extracted text.
type KnowledgeDocRequest struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// KnowledgeDocResponse is the JSON shape of one knowledge document.
type KnowledgeDocResponse struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	Size      int64  `json:"size"`
	CreatedAt string `json:"created_at"`
}

// handleChats handles the /api/chats collection: GET lists all conversations,
// most recently updated first, with full history and contact; POST is
// get-or-create by (channel, external_id).
func (g *Gateway) handleChats(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		g.handleListChats(w, r)
	case http.MethodPost:
		g.handleCreateChat(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (g *Gateway) handleListChats(w http.ResponseWriter, r *http.Request) {
	convs, err := g.inbox.ListConversations(r.Context())
	if err != nil {
		g.logger.Error("listing conversations", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	response := make([]ConversationResponse, 0, len(convs))
	for _, conv := range convs {
		response = append(response, conversationResponse(conv))
	}
	writeJSON(w, http.StatusOK, response)
}

func (g *Gateway) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	var req ConversationCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ExternalID == "" {
		g.sendJSONError(w, http.StatusBadRequest, "external_id is required")
		return
	}

	conv, err := g.inbox.GetOrCreateConversation(r.Context(), store.Channel(req.Channel), req.ExternalID, req.ContactName, req.ItemLabel)
	if err != nil {
		g.respondStoreError(w, err, "creating conversation")
		return
	}

	// Reload with relations so created and existing conversations come back
	// in the same shape.
	full, err := g.inbox.GetConversation(r.Context(), conv.ID)
	if err != nil {
		g.respondStoreError(w, err, "loading conversation")
		return
	}
	writeJSON(w, http.StatusOK, conversationResponse(full))
}

// handleChatRoutes dispatches /api/chats/{...} paths:
//
//	POST /api/chats/send
//	GET  /api/chats/{id}
//	PUT  /api/chats/{id}/mode
//	PUT  /api/chats/{id}/contact
//	PUT  /api/chats/{id}/notes
//	POST /api/chats/{id}/interactions
//	POST /api/chats/{id}/messages
func (g *Gateway) handleChatRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/chats/")
	if rest == "send" {
		g.handleSend(w, r)
		return
	}

	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		g.sendJSONError(w, http.StatusBadRequest, "chat id is required")
		return
	}

	switch action {
	case "":
		g.handleGetChat(w, r, id)
	case "mode":
		g.handleSetMode(w, r, id)
	case "contact":
		g.handleUpdateContact(w, r, id)
	case "notes":
		g.handleUpdateNotes(w, r, id)
	case "interactions":
		g.handleAddInteraction(w, r, id)
	case "messages":
		g.handleManagerMessage(w, r, id)
	default:
		g.sendJSONError(w, http.StatusNotFound, "unknown route")
	}
}

func (g *Gateway) handleGetChat(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	conv, err := g.inbox.GetConversation(r.Context(), id)
	if err != nil {
		g.respondStoreError(w, err, "fetching conversation")
		return
	}
	writeJSON(w, http.StatusOK, conversationResponse(conv))
}

func (g *Gateway) handleSetMode(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req ModeUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	conv, err := g.inbox.SetMode(r.Context(), id, store.Mode(req.Mode))
	if err != nil {
		g.respondStoreError(w, err, "setting mode")
		return
	}
	writeJSON(w, http.StatusOK, conversationResponse(conv))
}

func (g *Gateway) handleUpdateContact(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req ContactUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	contact, err := g.inbox.UpdateContact(r.Context(), id, store.ContactUpdate{
		Name:  req.Name,
		Phone: req.Phone,
		Email: req.Email,
		Notes: req.Notes,
	})
	if err != nil {
		g.respondStoreError(w, err, "updating contact")
		return
	}
	writeJSON(w, http.StatusOK, contactResponse(contact))
}

func (g *Gateway) handleUpdateNotes(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req NotesUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	contact, err := g.inbox.UpdateContact(r.Context(), id, store.ContactUpdate{Notes: &req.Notes})
	if err != nil {
		g.respondStoreError(w, err, "updating notes")
		return
	}
	writeJSON(w, http.StatusOK, contactResponse(contact))
}

func (g *Gateway) handleAddInteraction(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req InteractionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Summary) == "" {
		g.sendJSONError(w, http.StatusBadRequest, "summary is required")
		return
	}

	contact, err := g.inbox.AddContactInteraction(r.Context(), id, req.Summary)
	if err != nil {
		g.respondStoreError(w, err, "recording interaction")
		return
	}
	writeJSON(w, http.StatusOK, contactResponse(contact))
}

// handleManagerMessage handles POST /api/chats/{id}/messages.
// The operator takes over: the conversation is forced into HUMAN mode before
// the message is persisted.
func (g *Gateway) handleManagerMessage(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req MessageCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Content == "" {
		g.sendJSONError(w, http.StatusBadRequest, "content is required")
		return
	}

	msg, err := g.inbox.SendAsManager(r.Context(), id, req.Content)
	if err != nil {
		g.respondStoreError(w, err, "sending manager message")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse(msg))
}

// handleSend handles POST /api/chats/send: the combined send-and-respond
// operation used when no realtime channel is available.
func (g *Gateway) handleSend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ChatID == "" || req.Content == "" {
		g.sendJSONError(w, http.StatusBadRequest, "chat_id and content are required")
		return
	}

	result, err := g.inbox.SendAndRespond(r.Context(), req.ChatID, req.Content, req.Context)
	if err != nil {
		g.respondStoreError(w, err, "processing message")
		return
	}

	response := SendResponse{UserMessage: messageResponse(result.UserMessage)}
	if result.Reply != nil {
		reply := messageResponse(result.Reply)
		response.AIResponse = &reply
		response.Intent = string(result.Intent)
		response.SuggestedActions = make([]string, len(result.Actions))
		for i, a := range result.Actions {
			response.SuggestedActions[i] = string(a)
		}
	}
	writeJSON(w, http.StatusOK, response)
}

// handleAgentProfile handles GET and PUT /api/agent/profile.
func (g *Gateway) handleAgentProfile(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		profile, err := g.store.GetAgentProfile(r.Context())
		if errors.Is(err, store.ErrNotFound) {
			// Defaults; nothing saved yet.
			writeJSON(w, http.StatusOK, AgentProfileResponse{})
			return
		}
		if err != nil {
			g.respondStoreError(w, err, "fetching agent profile")
			return
		}
		writeJSON(w, http.StatusOK, AgentProfileResponse{
			Name:         profile.Name,
			Role:         profile.Role,
			Tone:         profile.Tone,
			SystemPrompt: profile.SystemPrompt,
			Skills:       profile.Skills,
			UpdatedAt:    profile.UpdatedAt.Format(time.RFC3339),
		})

	case http.MethodPut:
		var req AgentProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		err := g.store.SaveAgentProfile(r.Context(), &store.AgentProfile{
			Name:         req.Name,
			Role:         req.Role,
			Tone:         req.Tone,
			SystemPrompt: req.SystemPrompt,
			Skills:       req.Skills,
		})
		if err != nil {
			g.respondStoreError(w, err, "saving agent profile")
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleKnowledge handles GET and POST /api/agent/knowledge.
func (g *Gateway) handleKnowledge(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		docs, err := g.store.ListKnowledgeDocs(r.Context())
		if err != nil {
			g.respondStoreError(w, err, "listing knowledge docs")
			return
		}
		response := make([]KnowledgeDocResponse, 0, len(docs))
		for _, doc := range docs {
			response = append(response, knowledgeDocResponse(doc))
		}
		writeJSON(w, http.StatusOK, response)

	case http.MethodPost:
		var req KnowledgeDocRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.Filename == "" {
			g.sendJSONError(w, http.StatusBadRequest, "filename is required")
			return
		}
		doc := &store.KnowledgeDoc{
			Filename: req.Filename,
			Content:  req.Content,
			Size:     int64(len(req.Content)),
		}
		if err := g.store.AddKnowledgeDoc(r.Context(), doc); err != nil {
			g.respondStoreError(w, err, "adding knowledge doc")
			return
		}
		writeJSON(w, http.StatusCreated, knowledgeDocResponse(doc))

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleKnowledgeByID handles DELETE /api/agent/knowledge/{id}.
func (g *Gateway) handleKnowledgeByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/agent/knowledge/")
	if id == "" {
		g.sendJSONError(w, http.StatusBadRequest, "document id is required")
		return
	}

	if err := g.store.DeleteKnowledgeDoc(r.Context(), id); err != nil {
		g.respondStoreError(w, err, "deleting knowledge doc")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// respondStoreError maps store errors onto HTTP statuses.
func (g *Gateway) respondStoreError(w http.ResponseWriter, err error, action string) {
	var verr *store.ValidationError
	switch {
	case errors.Is(err, store.ErrNotFound):
		g.sendJSONError(w, http.StatusNotFound, "not found")
	case errors.As(err, &verr):
		g.sendJSONError(w, http.StatusBadRequest, verr.Error())
	default:
		g.logger.Error(action, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func conversationResponse(conv *store.Conversation) ConversationResponse {
	resp := ConversationResponse{
		ID:          conv.ID,
		Channel:     string(conv.Channel),
		ExternalID:  conv.ExternalID,
		Mode:        string(conv.Mode),
		ItemLabel:   conv.ItemLabel,
		UnreadCount: conv.UnreadCount,
		CreatedAt:   conv.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   conv.UpdatedAt.Format(time.RFC3339),
		Messages:    make([]MessageResponse, len(conv.Messages)),
	}
	for i, msg := range conv.Messages {
		resp.Messages[i] = messageResponse(msg)
	}
	if conv.Contact != nil {
		contact := contactResponse(conv.Contact)
		resp.Contact = &contact
	}
	return resp
}

func messageResponse(msg *store.Message) MessageResponse {
	return MessageResponse{
		ID:        msg.ID,
		Role:      string(msg.Role),
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt.Format(time.RFC3339),
	}
}

func contactResponse(c *store.Contact) ContactResponse {
	return ContactResponse{
		ID:      c.ID,
		Name:    c.Name,
		Phone:   c.Phone,
		Email:   c.Email,
		Notes:   c.Notes,
		History: c.History,
	}
}

func knowledgeDocResponse(doc *store.KnowledgeDoc) KnowledgeDocResponse {
	return KnowledgeDocResponse{
		ID:        doc.ID,
		Filename:  doc.Filename,
		Size:      doc.Size,
		CreatedAt: doc.CreatedAt.Format(time.RFC3339),
	}
}
