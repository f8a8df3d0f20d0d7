package fakeservice

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxTitleLength = 40

var chatRoles = map[string]bool{"USER": true, "ASSISTANT": true, "SYSTEM": true}

type chatRequest struct {
	Messages       []chatMessage `json:"messages"`
	ConversationID string        `json:"conversationId"`
	Context        *struct {
		CourseID string `json:"courseId"`
	} `json:"context"`
	Preferences *struct {
		IncludeReferences  bool `json:"includeReferences"`
		IncludeSuggestions bool `json:"includeSuggestions"`
	} `json:"preferences"`
}

type usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

type chatResponse struct {
	Answer         string   `json:"answer"`
	ConversationID string   `json:"conversationId"`
	Usage          usage    `json:"usage"`
	References     []string `json:"references,omitempty"`
	Suggestions    []string `json:"suggestions,omitempty"`
}

type answer struct {
	Answer string `json:"answer"`
}

type conversationSummary struct {
	conversation
	MessageCount int `json:"messageCount"`
}

func (s *Service) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages must not be empty")
		return
	}
	faults := s.currentFaults()
	for _, m := range req.Messages {
		if !chatRoles[strings.ToUpper(m.Role)] && !faults.AcceptUnknownChatRoles {
			writeError(w, http.StatusBadRequest, "invalid message role "+m.Role)
			return
		}
	}
	courseID := ""
	if req.Context != nil && req.Context.CourseID != "" {
		if !s.courseExists(req.Context.CourseID) {
			writeError(w, http.StatusNotFound, "course not found")
			return
		}
		courseID = req.Context.CourseID
	}

	owner := currentUser(r).ID
	question := req.Messages[len(req.Messages)-1].Content
	reply := fmt.Sprintf("This is a generated answer to: %s", question)
	now := s.now()

	s.lock.Lock()
	conv, ok := s.conversations[req.ConversationID]
	if !ok || conv.deleted || conv.ownerID != owner {
		conv = &conversation{
			ID:        uuid.NewString(),
			Title:     titleFrom(question),
			CourseID:  courseID,
			CreatedAt: now,
			ownerID:   owner,
		}
		s.conversations[conv.ID] = conv
	}
	conv.Messages = append(conv.Messages,
		chatMessage{Role: "USER", Content: question, CreatedAt: now},
		chatMessage{Role: "ASSISTANT", Content: reply, CreatedAt: now},
	)
	conv.UpdatedAt = now
	convID := conv.ID
	s.lock.Unlock()

	resp := chatResponse{
		Answer:         reply,
		ConversationID: convID,
		Usage: usage{
			PromptTokens:     len(strings.Fields(question)),
			CompletionTokens: len(strings.Fields(reply)),
		},
	}
	resp.Usage.TotalTokens = resp.Usage.PromptTokens + resp.Usage.CompletionTokens
	if courseID != "" && req.Preferences != nil {
		if req.Preferences.IncludeReferences {
			resp.References = []string{"Course " + courseID + ", module 1"}
		}
		if req.Preferences.IncludeSuggestions {
			resp.Suggestions = []string{"Review the first module before the next class."}
		}
	}
	writeData(w, http.StatusOK, resp)
}

func titleFrom(question string) string {
	runes := []rune(strings.TrimSpace(question))
	if len(runes) > maxTitleLength {
		return string(runes[:maxTitleLength])
	}
	if len(runes) == 0 {
		return "New conversation"
	}
	return string(runes)
}

// courseAnswer serves the endpoints that need a courseId query parameter.
func (s *Service) courseAnswer(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := r.URL.Query().Get("courseId")
		if courseID == "" {
			writeError(w, http.StatusBadRequest, "courseId is required")
			return
		}
		if !s.courseExists(courseID) {
			writeError(w, http.StatusNotFound, "course not found")
			return
		}
		writeData(w, http.StatusOK, answer{Answer: fmt.Sprintf("%s for course %s.", kind, courseID)})
	}
}

func (s *Service) reviewReminder(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, answer{Answer: "Nothing is due for review today."})
}

// ownConversation returns the caller's conversation named in the URL. The lock must be held.
func (s *Service) ownConversation(r *http.Request) (*conversation, bool) {
	conv, ok := s.conversations[chi.URLParam(r, "id")]
	if !ok || conv.ownerID != currentUser(r).ID {
		return nil, false
	}
	if conv.deleted && !s.faults.KeepDeletedChats {
		return nil, false
	}
	return conv, true
}

func (s *Service) listConversations(w http.ResponseWriter, r *http.Request) {
	owner := currentUser(r).ID

	s.lock.Lock()
	list := []conversationSummary{}
	for _, c := range s.conversations {
		if c.ownerID == owner && !c.deleted {
			list = append(list, conversationSummary{conversation: *c, MessageCount: len(c.Messages)})
		}
	}
	s.lock.Unlock()

	sort.Slice(list, func(i, j int) bool { return list[i].UpdatedAt.After(list[j].UpdatedAt) })
	writeData(w, http.StatusOK, list)
}

func (s *Service) getConversation(w http.ResponseWriter, r *http.Request) {
	s.lock.Lock()
	defer s.lock.Unlock()
	conv, ok := s.ownConversation(r)
	if !ok {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	writeData(w, http.StatusOK, conversationSummary{conversation: *conv, MessageCount: len(conv.Messages)})
}

func (s *Service) listMessages(w http.ResponseWriter, r *http.Request) {
	s.lock.Lock()
	defer s.lock.Unlock()
	conv, ok := s.ownConversation(r)
	if !ok {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	writeData(w, http.StatusOK, append([]chatMessage{}, conv.Messages...))
}

func (s *Service) renameConversation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "title must not be empty")
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	conv, ok := s.ownConversation(r)
	if !ok {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	conv.Title = req.Title
	conv.UpdatedAt = s.now()
	writeData(w, http.StatusOK, conv)
}

func (s *Service) deleteConversation(w http.ResponseWriter, r *http.Request) {
	s.lock.Lock()
	defer s.lock.Unlock()
	conv, ok := s.ownConversation(r)
	if !ok || conv.deleted {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	conv.deleted = true
	writeData(w, http.StatusOK, map[string]interface{}{
		"deleted":        true,
		"conversationId": conv.ID,
	})
}

func (s *Service) clearConversations(w http.ResponseWriter, r *http.Request) {
	owner := currentUser(r).ID

	s.lock.Lock()
	count := 0
	for _, c := range s.conversations {
		if c.ownerID == owner && !c.deleted {
			c.deleted = true
			count++
		}
	}
	s.lock.Unlock()

	writeData(w, http.StatusOK, map[string]interface{}{
		"deleted": true,
		"count":   count,
	})
}
