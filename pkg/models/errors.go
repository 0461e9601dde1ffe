package models

import "fmt"

// InsufficientDataError 学習に必要な観測日数が不足している場合のエラー
type InsufficientDataError struct {
	ProductID    string
	StoreID      string
	DistinctDays int
	RequiredDays int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("製品 %s の学習データが不足しています: %d日分（最低%d日分が必要です）",
		keyLabel(e.ProductID, e.StoreID), e.DistinctDays, e.RequiredDays)
}

// ModelNotFoundError 指定されたキーの学習済みモデルが存在しない場合のエラー
type ModelNotFoundError struct {
	ProductID string
	StoreID   string
}

func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("製品 %s の学習済みモデルが見つかりません", keyLabel(e.ProductID, e.StoreID))
}

// InsufficientForecastHorizonError 予測系列がリードタイムより短い場合のエラー
type InsufficientForecastHorizonError struct {
	AvailableDays int
	RequiredDays  int
}

func (e *InsufficientForecastHorizonError) Error() string {
	return fmt.Sprintf("予測データが不足しています: %d日分（リードタイム%d日分が必要です）",
		e.AvailableDays, e.RequiredDays)
}

// InvalidConfigError ポリシー設定値が範囲外の場合のエラー
type InvalidConfigError struct {
	Field  string
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("設定値 %s が不正です: %s", e.Field, e.Reason)
}

func keyLabel(productID, storeID string) string {
	if storeID == "" {
		return productID
	}
	return fmt.Sprintf("%s（店舗: %s）", productID, storeID)
}
