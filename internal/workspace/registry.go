package workspace

import (
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/adfleek/internal/generation"
)

// registryCleanupInterval はアイドルセッション掃除の実行間隔。
const registryCleanupInterval = 5 * time.Minute

// sessionEntry はセッションごとのオーケストレーターと最終アクセス時刻を保持する。
type sessionEntry struct {
	orchestrator *Orchestrator
	lastAccess   time.Time
}

// Registry はセッションIDごとのオーケストレーターを管理する。
// 各クライアントのオーケストレーター状態は他のクライアントと共有されない。
// 一定時間アクセスの無いセッションのエントリはバックグラウンドで破棄する。
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*sessionEntry

	store    ConversationStore
	gen      generation.Generator
	logger   *slog.Logger
	recorder MetricsRecorder
	idleTTL  time.Duration

	stopCh chan struct{}
}

// NewRegistry は新しいRegistryを生成する。
// バックグラウンドでアイドルエントリのクリーンアップを開始する。
func NewRegistry(store ConversationStore, gen generation.Generator, logger *slog.Logger, recorder MetricsRecorder, idleTTL time.Duration) *Registry {
	r := &Registry{
		entries:  make(map[string]*sessionEntry),
		store:    store,
		gen:      gen,
		logger:   logger,
		recorder: recorder,
		idleTTL:  idleTTL,
		stopCh:   make(chan struct{}),
	}

	go r.cleanupLoop()

	return r
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (r *Registry) Stop() {
	close(r.stopCh)
}

// GetOrCreate はセッションのオーケストレーターを取得または作成する。
// セッションが既知ならそのオーケストレーターを返し、最終アクセスを更新する。
func (r *Registry) GetOrCreate(sessionID, ownerID string) *Orchestrator {
	// 検索とlastAccess更新は同一ロック内で行う。途中でアイドル回収が
	// 走るとマップから消えた古いオーケストレーターを返してしまうため。
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, exists := r.entries[sessionID]; exists {
		e.lastAccess = time.Now()
		return e.orchestrator
	}

	orch := NewOrchestrator(ownerID, r.store, r.gen, r.logger, r.recorder)
	r.entries[sessionID] = &sessionEntry{
		orchestrator: orch,
		lastAccess:   time.Now(),
	}

	return orch
}

// Count は現在管理されているセッションエントリ数を返す。
// テストおよびメトリクス用。
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// cleanupLoop はアイドルTTLを超過したエントリを定期的に破棄する。
// オーケストレーターの状態は永続化済みデータの投影にすぎないため、
// 破棄されたセッションは次のアクセス時にURLの会話IDから復元される。
func (r *Registry) cleanupLoop() {
	ticker := time.NewTicker(registryCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.evictIdle()
		}
	}
}

// evictIdle はアイドルTTLを超過したエントリを削除する。
func (r *Registry) evictIdle() {
	cutoff := time.Now().Add(-r.idleTTL)

	r.mu.Lock()
	defer r.mu.Unlock()

	for sessionID, e := range r.entries {
		if e.lastAccess.Before(cutoff) {
			delete(r.entries, sessionID)
		}
	}
}
