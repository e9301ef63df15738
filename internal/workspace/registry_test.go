package workspace

import (
	"context"
	"testing"
	"time"

	"github.com/hitoshi/adfleek/internal/model"
)

// TestRegistry_GetOrCreate_ReturnsSameOrchestratorForSession は
// 同一セッションで同じオーケストレーターが返ることを検証する。
func TestRegistry_GetOrCreate_ReturnsSameOrchestratorForSession(t *testing.T) {
	r := NewRegistry(&mockConversationStore{}, &mockGenerator{}, testLogger(), nil, time.Hour)
	defer r.Stop()

	o1 := r.GetOrCreate("sess-1", "user-1")
	o2 := r.GetOrCreate("sess-1", "user-1")

	if o1 != o2 {
		t.Error("expected the same orchestrator instance for the same session")
	}
	if r.Count() != 1 {
		t.Errorf("count = %d, want 1", r.Count())
	}
}

// TestRegistry_GetOrCreate_SeparateSessionsAreIsolated は
// 別セッションのオーケストレーター状態が共有されないことを検証する。
func TestRegistry_GetOrCreate_SeparateSessionsAreIsolated(t *testing.T) {
	r := NewRegistry(&mockConversationStore{}, &mockGenerator{}, testLogger(), nil, time.Hour)
	defer r.Stop()

	o1 := r.GetOrCreate("sess-1", "user-1")
	o2 := r.GetOrCreate("sess-2", "user-2")

	if o1 == o2 {
		t.Fatal("expected distinct orchestrators for distinct sessions")
	}

	o1.SelectImageForRefinement("https://img.example.com/1.png", "prompt")

	if o2.Snapshot().SelectedImage != "" {
		t.Error("selection on one session must not leak into another")
	}
	if r.Count() != 2 {
		t.Errorf("count = %d, want 2", r.Count())
	}
}

// TestRegistry_GetOrCreate_RefreshKeepsEntryRegistered は
// TTL超過後の再アクセスで鮮度が戻り、直後の回収で返却済みの
// オーケストレーターが破棄されないことを検証する。
func TestRegistry_GetOrCreate_RefreshKeepsEntryRegistered(t *testing.T) {
	r := NewRegistry(&mockConversationStore{}, &mockGenerator{}, testLogger(), nil, 20*time.Millisecond)
	defer r.Stop()

	o1 := r.GetOrCreate("sess-1", "user-1")
	time.Sleep(30 * time.Millisecond)

	// 検索と同時にlastAccessが更新されるため、回収対象にならない
	o2 := r.GetOrCreate("sess-1", "user-1")
	r.evictIdle()

	if r.Count() != 1 {
		t.Fatalf("count = %d, want 1 after refresh and eviction", r.Count())
	}
	if o1 != o2 {
		t.Error("expected the same orchestrator across the refresh")
	}
	if r.GetOrCreate("sess-1", "user-1") != o2 {
		t.Error("refreshed entry must stay registered")
	}
}

// TestRegistry_EvictIdle_RemovesStaleEntries はアイドルTTL超過エントリが破棄されることを検証する。
func TestRegistry_EvictIdle_RemovesStaleEntries(t *testing.T) {
	r := NewRegistry(&mockConversationStore{}, &mockGenerator{}, testLogger(), nil, 10*time.Millisecond)
	defer r.Stop()

	r.GetOrCreate("sess-stale", "user-1")
	time.Sleep(20 * time.Millisecond)
	r.GetOrCreate("sess-fresh", "user-2")

	r.evictIdle()

	if r.Count() != 1 {
		t.Errorf("count = %d, want 1 after eviction", r.Count())
	}
}

// TestRegistry_EvictedSession_RebuildsFromConversation は
// 破棄後のセッションがSetRouteで永続化済み会話から復元できることを検証する。
func TestRegistry_EvictedSession_RebuildsFromConversation(t *testing.T) {
	store := &mockConversationStore{
		getFn: func(ctx context.Context, ownerID, conversationID string) (*model.Conversation, error) {
			return &model.Conversation{
				ID:       conversationID,
				OwnerID:  ownerID,
				Messages: []model.GenerationTurn{{ID: 1, Prompt: "persisted"}},
			}, nil
		},
	}
	r := NewRegistry(store, &mockGenerator{}, testLogger(), nil, time.Nanosecond)
	defer r.Stop()

	r.GetOrCreate("sess-1", "user-1")
	time.Sleep(time.Millisecond)
	r.evictIdle()

	if r.Count() != 0 {
		t.Fatalf("count = %d, want 0 after eviction", r.Count())
	}

	// 再アクセスで新しいオーケストレーターが作られ、会話IDから状態を復元できる
	o := r.GetOrCreate("sess-1", "user-1")
	if err := o.SetRoute(context.Background(), "conv-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	state := o.Snapshot()
	if len(state.Generations) != 1 || state.Generations[0].Prompt != "persisted" {
		t.Errorf("generations = %+v, want the persisted turn", state.Generations)
	}
}
