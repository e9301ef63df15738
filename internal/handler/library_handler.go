package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/hitoshi/adfleek/internal/middleware"
	"github.com/hitoshi/adfleek/internal/model"
)

// downloadCopyLimit はダウンロードプロキシが転送する最大バイト数。
const downloadCopyLimit = 20 << 20 // 20MB

// LibraryServiceInterface はライブラリハンドラーが必要とするサービスインターフェース。
type LibraryServiceInterface interface {
	// AddImage は画像URLをライブラリ先頭に保存する。
	AddImage(ctx context.Context, ownerID, imageURL, alt string) (*model.LibraryEntry, error)
	// ListImages はライブラリのエントリを新しい順に返す。
	ListImages(ctx context.Context, ownerID string) ([]model.LibraryEntry, error)
}

// ImageFetcher はダウンロードプロキシ用の画像取得インターフェース。
// SSRFガード付きのHTTPクライアントを抽象化する。
type ImageFetcher interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration) *http.Client
}

// LibraryHandler は画像ライブラリのHTTPハンドラー。
type LibraryHandler struct {
	service LibraryServiceInterface
	fetcher ImageFetcher
}

// NewLibraryHandler はLibraryHandlerを生成する。
func NewLibraryHandler(service LibraryServiceInterface, fetcher ImageFetcher) *LibraryHandler {
	return &LibraryHandler{
		service: service,
		fetcher: fetcher,
	}
}

// addImageRequest はライブラリ保存リクエストのボディ。
type addImageRequest struct {
	Src string `json:"src"`
	Alt string `json:"alt"`
}

// AddImage は画像をライブラリに保存する。
// POST /api/library
func (h *LibraryHandler) AddImage(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewAuthRequiredError())
		return
	}

	var req addImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	entry, err := h.service.AddImage(r.Context(), userID, req.Src, req.Alt)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(entry)
}

// ListImages はライブラリのエントリ一覧を返す。
// GET /api/library
func (h *LibraryHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewAuthRequiredError())
		return
	}

	entries, err := h.service.ListImages(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"images": entries,
	})
}

// Download は画像URLの内容を添付ファイルとしてプロキシする。
// 画像ホストがCORSやContent-Dispositionを制御できないため、
// ブラウザのダウンロード保存はサーバー経由で行う。
// 取得先URLはSSRFガードで検証する。
// GET /api/library/download?src=xxx
func (h *LibraryHandler) Download(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.UserIDFromContext(r.Context()); err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewAuthRequiredError())
		return
	}

	rawURL := r.URL.Query().Get("src")
	if rawURL == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidImageURLError("URLが空です"))
		return
	}

	if err := h.fetcher.ValidateURL(rawURL); err != nil {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewInvalidImageURLError(err.Error()))
		return
	}

	client := h.fetcher.NewSafeClient(30 * time.Second)
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, rawURL, nil)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidImageURLError(err.Error()))
		return
	}

	resp, err := client.Do(req)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadGateway, &model.APIError{
			Code:     "DOWNLOAD_FAILED",
			Message:  "画像の取得に失敗しました。",
			Category: "library",
			Action:   "しばらく待ってから再度お試しください。",
		})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		writeAPIErrorResponse(w, http.StatusBadGateway, &model.APIError{
			Code:     "DOWNLOAD_FAILED",
			Message:  "画像の取得に失敗しました。",
			Category: "library",
			Action:   "しばらく待ってから再度お試しください。",
		})
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="adfleek-image"`)
	io.Copy(w, io.LimitReader(resp.Body, downloadCopyLimit))
}
