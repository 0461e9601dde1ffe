package services

import (
	"math"

	"retail-inventory-api/pkg/models"
)

// ローリングオリジン交差検証のウィンドウ設定
const (
	cvInitialDays = 90
	cvPeriodDays  = 30
	cvHorizonDays = 30
)

// evaluateModel ローリングオリジン交差検証でモデル精度を評価する。
// 初期ウィンドウ90日・周期30日・ホライズン30日を基本とし、履歴が短い場合は
// 初期ウィンドウを縮小する。フォールドが1つも構成できない場合は学習データ内
// 残差による代替評価にフォールバックする（InSample=true）。
func evaluateModel(history []models.SalesObservation, confidence float64) models.ModelPerformance {
	n := len(history)
	z := normalQuantile((1 + confidence) / 2)

	initial := cvInitialDays
	if n < initial+cvHorizonDays {
		initial = cvHorizonDays
		if n/2 > initial {
			initial = n / 2
		}
	}

	var actuals, predictions, lowers, uppers []float64
	folds := 0

	for cutoff := initial; cutoff+cvHorizonDays <= n; cutoff += cvPeriodDays {
		foldModel, err := fitDemandModel(history[:cutoff])
		if err != nil {
			continue
		}
		margin := z * foldModel.residualStd
		for _, obs := range history[cutoff : cutoff+cvHorizonDays] {
			predicted := foldModel.pointAt(obs.Date)
			actuals = append(actuals, obs.Quantity)
			predictions = append(predictions, predicted)
			lowers = append(lowers, math.Max(0, predicted-margin))
			uppers = append(uppers, predicted+margin)
		}
		folds++
	}

	inSample := false
	if folds == 0 {
		// 履歴が短くフォールドを構成できない場合の代替評価
		inSample = true
		fullModel, err := fitDemandModel(history)
		if err != nil {
			return models.ModelPerformance{InSample: true}
		}
		margin := z * fullModel.residualStd
		for _, obs := range history {
			predicted := fullModel.pointAt(obs.Date)
			actuals = append(actuals, obs.Quantity)
			predictions = append(predictions, predicted)
			lowers = append(lowers, math.Max(0, predicted-margin))
			uppers = append(uppers, predicted+margin)
		}
	}

	perf := computeAccuracyMetrics(actuals, predictions, lowers, uppers)
	perf.Folds = folds
	perf.InSample = inSample
	return perf
}

// computeAccuracyMetrics 実績と予測の組から精度指標を計算する
func computeAccuracyMetrics(actuals, predictions, lowers, uppers []float64) models.ModelPerformance {
	if len(actuals) == 0 {
		return models.ModelPerformance{}
	}

	var absErrors, apes, smapes []float64
	var squaredSum float64
	covered := 0

	for i := range actuals {
		err := actuals[i] - predictions[i]
		absErr := math.Abs(err)
		absErrors = append(absErrors, absErr)
		squaredSum += err * err

		if actuals[i] != 0 {
			apes = append(apes, absErr/math.Abs(actuals[i]))
		}
		denom := math.Abs(actuals[i]) + math.Abs(predictions[i])
		if denom > 0 {
			smapes = append(smapes, 2*absErr/denom)
		}
		if actuals[i] >= lowers[i] && actuals[i] <= uppers[i] {
			covered++
		}
	}

	return models.ModelPerformance{
		MAE:      calculateMean(absErrors),
		MAPE:     calculateMean(apes),
		RMSE:     math.Sqrt(squaredSum / float64(len(actuals))),
		MdAPE:    calculateMedian(apes),
		SMAPE:    calculateMean(smapes),
		Coverage: float64(covered) / float64(len(actuals)),
	}
}
