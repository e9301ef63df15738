// Package workspace は「アクティブな会話」のクライアント状態を管理する
// オーケストレーターを提供する。ユーザーの送信・選択・再生成・キャンセルの
// 各インテントを生成ターンへ変換し、楽観的なローカル更新と非同期の永続化を
// 調停する。
package workspace

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/adfleek/internal/generation"
	"github.com/hitoshi/adfleek/internal/model"
)

// ConversationStore はオーケストレーターが必要とする永続化インターフェース。
// conversation.Serviceの部分集合として定義する。
type ConversationStore interface {
	CreateConversation(ctx context.Context, ownerID string, turn model.GenerationTurn) (string, error)
	AppendTurn(ctx context.Context, ownerID, conversationID string, turn model.GenerationTurn) error
	GetConversation(ctx context.Context, ownerID, conversationID string) (*model.Conversation, error)
}

// MetricsRecorder は生成関連メトリクスを記録するインターフェース。
// metrics.Collectorの部分集合として定義する。
type MetricsRecorder interface {
	RecordGeneration(isRefinement bool)
	RecordGenerationFailure()
	RecordTurnsAppended(count int)
}

// nopMetrics はメトリクス未設定時のレコーダー。
type nopMetrics struct{}

func (nopMetrics) RecordGeneration(bool)    {}
func (nopMetrics) RecordGenerationFailure() {}
func (nopMetrics) RecordTurnsAppended(int)  {}

// GenerateInput は生成インテントの入力。
// バリデーション（プロンプト非空、縦横比、バリエーション数の範囲）は
// ハンドラー層で実施済みであることを前提とする。
type GenerateInput struct {
	Prompt      string
	AspectRatio model.AspectRatio
	Variations  int
}

// State はオーケストレーターの現在状態のスナップショット。
type State struct {
	Generations          []model.GenerationTurn
	SelectedImage        string
	LastPrompt           string
	IsSubmitting         bool
	IsLoading            bool
	ActiveConversationID string
}

// Orchestrator は1クライアントセッション分の会話状態機械。
// HTTPリクエストは並行に到達しうるためミューテックスで直列化するが、
// isSubmittingは助言的な状態であり、送信中でも新しいインテントを
// ブロックしない。
type Orchestrator struct {
	mu sync.Mutex

	ownerID string
	store   ConversationStore
	gen     generation.Generator
	logger  *slog.Logger
	metrics MetricsRecorder

	// テストで差し替え可能な時刻・タイマー
	now       func() time.Time
	afterFunc func(d time.Duration, f func()) *time.Timer

	generations          []model.GenerationTurn
	selectedImage        string
	lastPrompt           string
	isSubmitting         bool
	isLoading            bool
	activeConversationID string

	// 古いレイテンシタイマーが新しい送信のスピナーを消さないための世代番号
	submitSeq uint64
}

// NewOrchestrator は認証済みユーザー1人分のOrchestratorを生成する。
func NewOrchestrator(ownerID string, store ConversationStore, gen generation.Generator, logger *slog.Logger, recorder MetricsRecorder) *Orchestrator {
	if recorder == nil {
		recorder = nopMetrics{}
	}
	return &Orchestrator{
		ownerID:   ownerID,
		store:     store,
		gen:       gen,
		logger:    logger,
		metrics:   recorder,
		now:       time.Now,
		afterFunc: time.AfterFunc,
	}
}

// Generate は生成インテントを処理する。
//
// 副作用の順序は固定されている:
//  1. ターンをローカルのgenerationsへ楽観的に追記する
//  2. 選択中画像をクリアし、プロンプトを「最後のプロンプト」として記憶する
//  3. アクティブな会話が無ければ会話を新規作成し、あれば追記する
//  4. 永続化に失敗した場合は楽観的追記をロールバックする
//  5. 永続化の成否に関わらず生成レイテンシを開始し、経過後にisSubmittingを落とす
//
// selectedImageが設定されている場合はリファインメントと解釈し、
// 呼び出し側の指定に関わらずバリエーション数は1に強制される。
func (o *Orchestrator) Generate(ctx context.Context, in GenerateInput) (*model.GenerationTurn, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.generateLocked(ctx, in)
}

// Regenerate は選択中画像をクリアしてから生成をやり直す。
// リファインメント選択が有効でも常に新規の複数バリエーションバッチになる。
func (o *Orchestrator) Regenerate(ctx context.Context, in GenerateInput) (*model.GenerationTurn, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.selectedImage = ""
	return o.generateLocked(ctx, in)
}

// generateLocked はロック保持前提のGenerate本体。
func (o *Orchestrator) generateLocked(ctx context.Context, in GenerateInput) (*model.GenerationTurn, error) {
	if o.ownerID == "" {
		return nil, model.NewAuthRequiredError()
	}

	isRefinement := o.selectedImage != ""
	variations := in.Variations
	if isRefinement {
		// リファインメントは常に1枚の派生画像を生成する
		variations = 1
	}

	now := o.now()
	turn := model.GenerationTurn{
		ID:           now.UnixMilli(),
		Prompt:       in.Prompt,
		AspectRatio:  in.AspectRatio,
		Variations:   variations,
		ImageURLs:    o.gen.ImageURLs(in.AspectRatio, variations, isRefinement),
		IsRefinement: isRefinement,
		CreatedAt:    now,
	}
	if isRefinement {
		turn.RefinedFrom = o.selectedImage
	}

	// 1. 楽観的追記
	o.generations = append(o.generations, turn)

	// 2. 選択のクリアとプロンプトの記憶
	o.selectedImage = ""
	o.lastPrompt = in.Prompt

	// 5. 永続化の成否に関わらずレイテンシを開始する
	o.isSubmitting = true
	o.submitSeq++
	o.startLatencyTimer(o.submitSeq)

	// 3. 永続化（会話の新規作成または追記）
	var persistErr error
	if o.activeConversationID == "" {
		conversationID, err := o.store.CreateConversation(ctx, o.ownerID, turn)
		if err != nil {
			persistErr = err
		} else {
			o.activeConversationID = conversationID
		}
	} else {
		persistErr = o.store.AppendTurn(ctx, o.ownerID, o.activeConversationID, turn)
	}

	// 4. 失敗時は楽観的追記をロールバックする
	if persistErr != nil {
		o.generations = o.generations[:len(o.generations)-1]
		o.metrics.RecordGenerationFailure()
		o.logger.Error("failed to persist generation turn",
			slog.String("user_id", o.ownerID),
			slog.String("conversation_id", o.activeConversationID),
			slog.String("error", persistErr.Error()),
		)
		if apiErr, ok := persistErr.(*model.APIError); ok {
			return nil, apiErr
		}
		return nil, model.NewPersistenceFailureError()
	}

	o.metrics.RecordGeneration(isRefinement)
	o.metrics.RecordTurnsAppended(1)
	return &turn, nil
}

// startLatencyTimer は生成レイテンシ経過後にisSubmittingを落とすタイマーを
// 起動する。seqが現在の送信世代と一致する場合のみ状態を変更するため、
// 完了済み・キャンセル済みの古いタイマーが後続の送信に影響することはない。
func (o *Orchestrator) startLatencyTimer(seq uint64) {
	o.afterFunc(o.gen.Latency(), func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		if o.submitSeq == seq {
			o.isSubmitting = false
		}
	})
}

// SelectImageForRefinement はリファインメント対象の画像を選択する。
// 純粋にローカルな操作で、常に成功し永続化には触れない。
// 入力欄には元のプロンプトをプライムし、ユーザーが差分を記述できるようにする。
func (o *Orchestrator) SelectImageForRefinement(imageRef, originatingPrompt string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.selectedImage = imageRef
	o.lastPrompt = originatingPrompt
}

// Cancel は送信中スピナーとリファインメント選択をクリアする。
// 楽観的に追記済み・永続化済みのターンは取り消さない。キャンセルは
// 次の送信のin-flight状態にのみ作用し、確定済みデータには影響しない。
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.isSubmitting = false
	o.selectedImage = ""
	// 以後に発火する古いタイマーを無効化する
	o.submitSeq++
}

// SetRoute はURLの会話ID変更に反応する。
//
// conversationIDが空の場合は「新しい会話」状態にリセットする。
// アクティブな会話と異なるIDの場合は会話を取得し、成功すれば
// ローカルのgenerationsを取得結果で丸ごと置き換える。取得に失敗した場合
// （不在または他ユーザー所有）はリセットした上でエラーを返す。
func (o *Orchestrator) SetRoute(ctx context.Context, conversationID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if conversationID == "" {
		o.resetLocked()
		return nil
	}

	if conversationID == o.activeConversationID {
		return nil
	}

	o.isLoading = true
	conv, err := o.store.GetConversation(ctx, o.ownerID, conversationID)
	o.isLoading = false

	if err != nil {
		o.resetLocked()
		o.logger.Warn("failed to load conversation",
			slog.String("user_id", o.ownerID),
			slog.String("conversation_id", conversationID),
			slog.String("error", err.Error()),
		)
		if apiErr, ok := err.(*model.APIError); ok {
			return apiErr
		}
		return model.NewConversationNotFoundError(conversationID)
	}

	o.generations = append([]model.GenerationTurn{}, conv.Messages...)
	o.activeConversationID = conversationID
	o.selectedImage = ""
	return nil
}

// resetLocked は空の新規会話状態に戻す。ロック保持前提。
func (o *Orchestrator) resetLocked() {
	o.generations = []model.GenerationTurn{}
	o.selectedImage = ""
	o.lastPrompt = ""
	o.isSubmitting = false
	o.isLoading = false
	o.activeConversationID = ""
	o.submitSeq++
}

// Snapshot は現在状態のコピーを返す。
func (o *Orchestrator) Snapshot() State {
	o.mu.Lock()
	defer o.mu.Unlock()

	return State{
		Generations:          append([]model.GenerationTurn{}, o.generations...),
		SelectedImage:        o.selectedImage,
		LastPrompt:           o.lastPrompt,
		IsSubmitting:         o.isSubmitting,
		IsLoading:            o.isLoading,
		ActiveConversationID: o.activeConversationID,
	}
}
