package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"retail-inventory-api/pkg/models"

	"github.com/xuri/excelize/v2"
)

// SalesImportService 販売実績ファイル（.xlsx / .csv）の取り込みサービス
type SalesImportService struct{}

// NewSalesImportService 新しい取り込みサービスを作成
func NewSalesImportService() *SalesImportService {
	return &SalesImportService{}
}

// ImportResult ファイル取り込みの結果
type ImportResult struct {
	Series      map[ModelKey][]models.SalesObservation
	TotalRows   int
	ParsedRows  int
	SkippedRows int
}

// ParseFile アップロードされた販売実績ファイルを(製品, 店舗)ごとの観測列に変換する。
// 必須列: 日付・製品ID・数量。店舗ID列はオプション。
// 同一キー・同一日付の重複はここでは排除せず、学習時の正規化（後勝ち）に委ねる。
func (s *SalesImportService) ParseFile(r io.Reader, filename string) (*ImportResult, error) {
	var rows [][]string

	switch {
	case strings.HasSuffix(strings.ToLower(filename), ".xlsx"):
		f, err := excelize.OpenReader(r)
		if err != nil {
			return nil, fmt.Errorf("Excelファイルの読み込みに失敗しました: %w", err)
		}
		defer f.Close()
		rows, err = f.GetRows(f.GetSheetName(0))
		if err != nil {
			return nil, fmt.Errorf("Excelシートの行取得に失敗しました: %w", err)
		}
	case strings.HasSuffix(strings.ToLower(filename), ".csv"):
		var err error
		reader := csv.NewReader(r)
		reader.FieldsPerRecord = -1
		rows, err = reader.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("CSVファイルの解析に失敗しました: %w", err)
		}
	default:
		return nil, fmt.Errorf("サポートされていないファイル形式です: %s（.xlsxまたは.csvを指定してください）", filename)
	}

	if len(rows) < 2 {
		return nil, fmt.Errorf("ファイルにはヘッダー行と少なくとも1行のデータが必要です")
	}

	return s.parseRows(rows)
}

func (s *SalesImportService) parseRows(rows [][]string) (*ImportResult, error) {
	header := rows[0]
	dataRows := rows[1:]

	dateIdx := findColumn(header, "date", "日付")
	productIdx := findColumn(header, "product_id", "product_code", "製品ID", "製品コード", "商品ID", "商品コード")
	storeIdx := findColumn(header, "store_id", "店舗ID", "店舗コード")
	quantityIdx := findColumn(header, "quantity", "sales", "quantity_sold", "販売数", "数量")

	var missing []string
	if dateIdx == -1 {
		missing = append(missing, "日付")
	}
	if productIdx == -1 {
		missing = append(missing, "製品ID")
	}
	if quantityIdx == -1 {
		missing = append(missing, "数量")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("必須列が見つかりません: %s（ヘッダー: %v）", strings.Join(missing, ", "), header)
	}

	result := &ImportResult{
		Series:    make(map[ModelKey][]models.SalesObservation),
		TotalRows: len(dataRows),
	}

	for _, row := range dataRows {
		if dateIdx >= len(row) || productIdx >= len(row) || quantityIdx >= len(row) {
			result.SkippedRows++
			continue
		}

		date, err := parseDate(strings.TrimSpace(row[dateIdx]))
		if err != nil {
			result.SkippedRows++
			continue
		}
		productID := strings.TrimSpace(row[productIdx])
		if productID == "" {
			result.SkippedRows++
			continue
		}
		quantity, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(row[quantityIdx]), ",", ""), 64)
		if err != nil || quantity < 0 {
			result.SkippedRows++
			continue
		}

		storeID := ""
		if storeIdx != -1 && storeIdx < len(row) {
			storeID = strings.TrimSpace(row[storeIdx])
		}

		key := ModelKey{ProductID: productID, StoreID: storeID}
		result.Series[key] = append(result.Series[key], models.SalesObservation{
			Date:     date,
			Quantity: quantity,
		})
		result.ParsedRows++
	}

	if result.ParsedRows == 0 {
		return nil, fmt.Errorf("有効なデータ行がありません（%d行中%d行をスキップ）", result.TotalRows, result.SkippedRows)
	}

	log.Printf("📊 [取り込み] 販売実績を解析: %d行中%d行を取り込み（%dキー）",
		result.TotalRows, result.ParsedRows, len(result.Series))

	return result, nil
}

// findColumn ヘッダー行から候補名に一致する列インデックスを探す（大文字小文字無視）
func findColumn(header []string, candidates ...string) int {
	for _, candidate := range candidates {
		for i, name := range header {
			if strings.EqualFold(strings.TrimSpace(name), candidate) {
				return i
			}
		}
	}
	return -1
}

// parseDate 日付文字列をパースする。複数のフォーマットを許容する。
func parseDate(value string) (time.Time, error) {
	layouts := []string{"2006-01-02", "2006/01/02", "2006-1-2", "2006/1/2", "01-02-06", "1/2/06 15:04"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("日付として解釈できません: %s", value)
}
