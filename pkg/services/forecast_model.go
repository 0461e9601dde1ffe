package services

import (
	"fmt"
	"math"
	"sort"
	"time"

	"retail-inventory-api/pkg/models"
)

// modelVersion 現行の需要モデルのバージョン文字列
const modelVersion = "1.2.0-trend-weekly"

// demandModel は学習済みの需要モデル。fit後は不変であり、
// 再学習時はマージせず新しいインスタンスで置き換える。
type demandModel struct {
	firstDate time.Time
	lastDate  time.Time
	samples   int

	// トレンド成分（日数インデックスに対する単回帰）
	slope     float64
	intercept float64

	// 曜日効果（全体平均に対する比率、1.0が平均）
	weekdayEffect [7]float64

	// 学習データ内残差（ブートストラップ・区間推定用）
	residuals   []float64
	residualStd float64

	version string
}

// prediction 1日分の点予測と成分分解
type prediction struct {
	date   time.Time
	point  float64
	trend  float64
	weekly float64
}

// normalizeObservations 観測列を日付昇順に整列し、重複日付は後勝ちで
// 重複排除する。数量は0未満を0にクランプ、日付は日単位に丸める。
func normalizeObservations(observations []models.SalesObservation) []models.SalesObservation {
	byDate := make(map[time.Time]float64, len(observations))
	for _, obs := range observations {
		day := obs.Date.Truncate(24 * time.Hour)
		byDate[day] = math.Max(0, obs.Quantity) // 後勝ち
	}

	normalized := make([]models.SalesObservation, 0, len(byDate))
	for day, qty := range byDate {
		normalized = append(normalized, models.SalesObservation{Date: day, Quantity: qty})
	}
	sort.Slice(normalized, func(i, j int) bool {
		return normalized[i].Date.Before(normalized[j].Date)
	})
	return normalized
}

// mergeObservations 既存履歴に新しい観測をマージする。同一日付は新しい
// 観測が優先される。結果は日付昇順。
func mergeObservations(history, incoming []models.SalesObservation) []models.SalesObservation {
	merged := make([]models.SalesObservation, 0, len(history)+len(incoming))
	merged = append(merged, history...)
	merged = append(merged, incoming...)
	return normalizeObservations(merged)
}

// fitDemandModel 整列済みの観測列から需要モデルを学習する。
// 曜日効果で脱季節化した系列にトレンド回帰を当て、残差を保持する。
func fitDemandModel(history []models.SalesObservation) (*demandModel, error) {
	if len(history) < 2 {
		return nil, fmt.Errorf("モデル学習には2日分以上の観測が必要です")
	}

	m := &demandModel{
		firstDate: history[0].Date,
		lastDate:  history[len(history)-1].Date,
		samples:   len(history),
		version:   modelVersion,
	}

	quantities := make([]float64, len(history))
	for i, obs := range history {
		quantities[i] = obs.Quantity
	}
	overallMean := calculateMean(quantities)

	// 曜日効果: 曜日ごとの平均 / 全体平均
	var weekdaySum [7]float64
	var weekdayCount [7]int
	for _, obs := range history {
		w := int(obs.Date.Weekday())
		weekdaySum[w] += obs.Quantity
		weekdayCount[w]++
	}
	for w := 0; w < 7; w++ {
		if weekdayCount[w] > 0 && overallMean > 0 {
			m.weekdayEffect[w] = (weekdaySum[w] / float64(weekdayCount[w])) / overallMean
		} else {
			m.weekdayEffect[w] = 1.0
		}
	}

	// 脱季節化した系列にトレンド回帰
	xs := make([]float64, len(history))
	ys := make([]float64, len(history))
	for i, obs := range history {
		xs[i] = m.dayIndex(obs.Date)
		effect := m.weekdayEffect[int(obs.Date.Weekday())]
		if effect > 0 {
			ys[i] = obs.Quantity / effect
		} else {
			ys[i] = obs.Quantity
		}
	}
	slope, intercept, err := linearRegression(xs, ys)
	if err != nil {
		// 定数系列などで回帰できない場合は水平トレンドにフォールバック
		slope, intercept = 0, overallMean
	}
	m.slope = slope
	m.intercept = intercept

	// 学習データ内残差
	m.residuals = make([]float64, len(history))
	for i, obs := range history {
		fitted := m.pointAt(obs.Date)
		m.residuals[i] = obs.Quantity - fitted
	}
	m.residualStd = calculateSampleStandardDeviation(m.residuals)

	return m, nil
}

// dayIndex 学習開始日からの経過日数
func (m *demandModel) dayIndex(date time.Time) float64 {
	return date.Sub(m.firstDate).Hours() / 24
}

// pointAt 指定日の点予測（トレンド×曜日効果、0以上にクランプ）
func (m *demandModel) pointAt(date time.Time) float64 {
	trend := m.slope*m.dayIndex(date) + m.intercept
	point := trend * m.weekdayEffect[int(date.Weekday())]
	return math.Max(0, point)
}

// predict 学習データの翌日からhorizon日分の点予測を生成する
func (m *demandModel) predict(horizon int) []prediction {
	predictions := make([]prediction, horizon)
	for i := 0; i < horizon; i++ {
		date := m.lastDate.AddDate(0, 0, i+1)
		trend := m.slope*m.dayIndex(date) + m.intercept
		effect := m.weekdayEffect[int(date.Weekday())]
		predictions[i] = prediction{
			date:   date,
			point:  math.Max(0, trend*effect),
			trend:  trend,
			weekly: effect,
		}
	}
	return predictions
}
