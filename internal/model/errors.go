// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, feed, storage, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidURL           = "INVALID_URL"
	ErrCodeSSRFBlocked          = "SSRF_BLOCKED"
	ErrCodeFetchFailed          = "FETCH_FAILED"
	ErrCodeUnsupportedDocument  = "UNSUPPORTED_DOCUMENT"
	ErrCodeUnsupportedFeedType  = "UNSUPPORTED_FEED_TYPE"
	ErrCodeInvalidField         = "INVALID_FIELD"
	ErrCodeFeedNotFound         = "FEED_NOT_FOUND"
	ErrCodeSubscriptionNotFound = "SUBSCRIPTION_NOT_FOUND"
	ErrCodeEntryNotFound        = "ENTRY_NOT_FOUND"
	ErrCodeProfileNotFound      = "PROFILE_NOT_FOUND"
	ErrCodeConflict             = "CONFLICT"
	ErrCodeStorageUnavailable   = "STORAGE_UNAVAILABLE"
)

// NewInvalidURLError は無効なURLエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("無効なURLです: %s", reason),
		Category: "validation",
		Action:   "正しいURL形式（http:// または https:// で始まるURL）を入力してください。",
	}
}

// NewSSRFBlockedError はSSRFブロックエラーを生成する。
func NewSSRFBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeSSRFBlocked,
		Message:  "セキュリティポリシーにより、指定されたURLへのアクセスがブロックされました。",
		Category: "validation",
		Action:   "公開されているWebサイトのURLを入力してください。ローカルネットワークやプライベートIPへのアクセスは許可されていません。",
	}
}

// NewFetchFailedError はフェッチ失敗エラーを生成する。
// ネットワークエラー・タイムアウト・エラーステータスが対象で、呼び出し側でリトライ可能。
func NewFetchFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeFetchFailed,
		Message:  fmt.Sprintf("URLの取得に失敗しました: %s", reason),
		Category: "feed",
		Action:   "URLが正しいか確認し、しばらく待ってから再度お試しください。",
	}
}

// NewUnsupportedDocumentError はHTML/XMLいずれとも判定できない
// ドキュメントに対するエラーを生成する。
func NewUnsupportedDocumentError() *APIError {
	return &APIError{
		Code:     ErrCodeUnsupportedDocument,
		Message:  "取得したドキュメントの形式を判別できませんでした。",
		Category: "feed",
		Action:   "有効なRSS/Atomフィード、またはフィードを公開しているページのURLを指定してください。",
	}
}

// NewUnsupportedFeedTypeError はRSSともAtomとも判定できない
// XMLドキュメントに対するエラーを生成する。
func NewUnsupportedFeedTypeError(rootName string) *APIError {
	return &APIError{
		Code:     ErrCodeUnsupportedFeedType,
		Message:  fmt.Sprintf("サポート外のフィード形式です（ルート要素: %s）。", rootName),
		Category: "feed",
		Action:   "RSS 2.0またはAtom形式のフィードURLを指定してください。",
	}
}

// NewInvalidFieldError はpostprocess段階での型検証失敗エラーを生成する。
func NewInvalidFieldError(field, reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidField,
		Message:  fmt.Sprintf("フィールド %s の検証に失敗しました: %s", field, reason),
		Category: "feed",
		Action:   "フィードの内容が正しいか配信元に確認してください。",
	}
}

// NewFeedNotFoundError はフィード未検出エラーを生成する。
func NewFeedNotFoundError(feedID string) *APIError {
	return &APIError{
		Code:     ErrCodeFeedNotFound,
		Message:  fmt.Sprintf("指定されたフィードが見つかりません: %s", feedID),
		Category: "feed",
		Action:   "フィードIDを確認してください。",
	}
}

// NewSubscriptionNotFoundError は購読が見つからない場合のエラーを生成する。
func NewSubscriptionNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeSubscriptionNotFound,
		Message:  fmt.Sprintf("指定された購読が見つかりません: %s", id),
		Category: "feed",
		Action:   "購読一覧を確認してください。",
	}
}

// NewEntryNotFoundError はエントリ未検出エラーを生成する。
func NewEntryNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeEntryNotFound,
		Message:  fmt.Sprintf("指定されたエントリが見つかりません: %s", id),
		Category: "feed",
		Action:   "エントリIDを確認してください。",
	}
}

// NewConflictError はUPSERT経路で吸収されなかった一意制約違反のエラーを生成する。
// 通常は発生しない。発生した場合はストレージ層の不変条件違反を意味する。
func NewConflictError(detail string) *APIError {
	return &APIError{
		Code:     ErrCodeConflict,
		Message:  fmt.Sprintf("データの一意性制約に違反しました: %s", detail),
		Category: "storage",
		Action:   "時間をおいて再度お試しください。解消しない場合は管理者に連絡してください。",
	}
}

// NewStorageUnavailableError はストレージ層の一時的な障害エラーを生成する。
// フェッチ/パース系のエラーとは区別され、バックオフ付きでリトライ可能。
func NewStorageUnavailableError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeStorageUnavailable,
		Message:  fmt.Sprintf("データベースへのアクセスに失敗しました: %s", reason),
		Category: "storage",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
