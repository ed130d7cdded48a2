package e2e

import (
	"net/http"
	"testing"
)

func createConversation(t *testing.T, ta *testApp, body string) map[string]interface{} {
	t.Helper()
	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/conversations/", body)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusCreated)
	return parseJSON(t, resp)
}

func TestConversationCreate_SeedsGreeting(t *testing.T) {
	ta := setupApp(t)

	result := createConversation(t, ta, "")

	greeting, ok := result["greeting"].(map[string]interface{})
	if !ok {
		t.Fatal("expected greeting message in response")
	}
	if greeting["role"] != "assistant" {
		t.Errorf("expected assistant greeting, got %v", greeting["role"])
	}
	if greeting["content"] != "Hey there! I'm ready to chat. What's on your mind?" {
		t.Errorf("unexpected greeting content: %v", greeting["content"])
	}
}

func TestConversationMessages_IncludesGreeting(t *testing.T) {
	ta := setupApp(t)

	result := createConversation(t, ta, `{"title": "test chat"}`)
	conv := result["conversation"].(map[string]interface{})
	id := conv["id"].(string)

	resp, err := doAuthRequest(t, ta.app, http.MethodGet, "/api/conversations/"+id+"/messages", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	list := parseJSON(t, resp)
	messages, ok := list["messages"].([]interface{})
	if !ok {
		t.Fatal("expected messages array")
	}
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
}

func TestConversationRenameAndList(t *testing.T) {
	ta := setupApp(t)

	result := createConversation(t, ta, "")
	conv := result["conversation"].(map[string]interface{})
	id := conv["id"].(string)

	resp, err := doAuthRequest(t, ta.app, http.MethodPatch, "/api/conversations/"+id,
		`{"title": "renamed"}`)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)
	renamed := parseJSON(t, resp)
	if renamed["title"] != "renamed" {
		t.Errorf("expected title renamed, got %v", renamed["title"])
	}

	resp, err = doAuthRequest(t, ta.app, http.MethodGet, "/api/conversations/", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)
	list := parseJSON(t, resp)
	conversations, ok := list["conversations"].([]interface{})
	if !ok || len(conversations) != 1 {
		t.Fatalf("expected 1 conversation, got %v", list["conversations"])
	}
}

func TestConversationDelete(t *testing.T) {
	ta := setupApp(t)

	result := createConversation(t, ta, "")
	conv := result["conversation"].(map[string]interface{})
	id := conv["id"].(string)

	resp, err := doAuthRequest(t, ta.app, http.MethodDelete, "/api/conversations/"+id, "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusNoContent)

	resp, err = doAuthRequest(t, ta.app, http.MethodGet, "/api/conversations/"+id+"/messages", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusNotFound)
}

func TestSendMessage_UpstreamUnavailable(t *testing.T) {
	ta := setupApp(t)

	result := createConversation(t, ta, "")
	conv := result["conversation"].(map[string]interface{})
	id := conv["id"].(string)

	// The Groq client is unconfigured in tests, so generation fails upstream.
	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/conversations/"+id+"/messages",
		`{"content": "hello there"}`)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusBadGateway)
}

func TestSendMessage_ValidationAndNotFound(t *testing.T) {
	ta := setupApp(t)

	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/conversations/nope/messages",
		`{"content": ""}`)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusBadRequest)

	resp, err = doAuthRequest(t, ta.app, http.MethodPost, "/api/conversations/nope/messages",
		`{"content": "hi"}`)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusNotFound)
}

func TestConversations_NoAuth(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodGet, "/api/conversations/", "", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusUnauthorized)
}
