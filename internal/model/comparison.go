package model

// Metric is a per-day quantity derived from the event stream.
type Metric string

const (
	MetricSpending        Metric = "spending"
	MetricWellness        Metric = "wellness"
	MetricSustainability  Metric = "sustainability"
	MetricMovementMinutes Metric = "movement_minutes"
	MetricSteps           Metric = "steps"
)

// Valid reports whether m is a supported metric.
func (m Metric) Valid() bool {
	switch m {
	case MetricSpending, MetricWellness, MetricSustainability, MetricMovementMinutes, MetricSteps:
		return true
	}
	return false
}

// Granularity is the bucket size of a trend series.
type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
)

// Valid reports whether g is a supported granularity.
func (g Granularity) Valid() bool {
	return g == GranularityDay || g == GranularityWeek || g == GranularityMonth
}

// MetricPoint is one bucket of a metric series. Samples counts the events
// that contributed; a zero-sample point carries value 0 and is excluded
// from averages.
type MetricPoint struct {
	Date    string  `json:"date"`
	Value   float64 `json:"value"`
	Samples int     `json:"samples"`
}

// BeforeAfterComparison contrasts a metric in the windows before and after
// an intervention date.
type BeforeAfterComparison struct {
	Metric           Metric        `json:"metric"`
	InterventionDate string        `json:"intervention_date"`
	WindowDays       int           `json:"window_days"`
	BeforeAvg        float64       `json:"before_avg"`
	AfterAvg         float64       `json:"after_avg"`
	Change           float64       `json:"change"`
	ChangePercent    float64       `json:"change_percent"`
	BeforeData       []MetricPoint `json:"before_data"`
	AfterData        []MetricPoint `json:"after_data"`
}

// TrendSeries is a metric bucketed over an arbitrary range.
type TrendSeries struct {
	Metric      Metric        `json:"metric"`
	Granularity Granularity   `json:"granularity"`
	Start       string        `json:"start"`
	End         string        `json:"end"`
	Data        []MetricPoint `json:"data"`
}

// Period is the length of a dashboard comparison: the trailing period ending
// today against the one before it.
type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// Days returns the period length, or 0 for an unknown period.
func (p Period) Days() int {
	switch p {
	case PeriodWeek:
		return 7
	case PeriodMonth:
		return 30
	}
	return 0
}

// PeriodStat is one dashboard figure with its change against the previous
// period.
type PeriodStat struct {
	Value         float64 `json:"value"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
}

// DashboardStats are the headline figures of a period.
type DashboardStats struct {
	SpendingTotal      PeriodStat `json:"spending_total"`
	StepsTotal         PeriodStat `json:"steps_total"`
	MealsLogged        PeriodStat `json:"meals_logged"`
	WorkoutsCompleted  PeriodStat `json:"workouts_completed"`
	WellnessScoreAvg   PeriodStat `json:"wellness_score_avg"`
	SwapsAccepted      PeriodStat `json:"swaps_accepted"`
	MoneySavedViaSwaps PeriodStat `json:"money_saved_via_swaps"`
}

// PeriodStats compares the current period with the previous one.
type PeriodStats struct {
	Period        Period         `json:"period"`
	Start         string         `json:"start"`
	End           string         `json:"end"`
	PreviousStart string         `json:"previous_start"`
	Stats         DashboardStats `json:"stats"`
}

// BreakdownKind selects how events are split into slices.
type BreakdownKind string

const (
	BreakdownSpendingByCategory BreakdownKind = "spending_by_category"
	BreakdownFoodByQuality      BreakdownKind = "food_by_quality"
	BreakdownTimeByActivity     BreakdownKind = "time_by_activity"
)

// Valid reports whether k is a supported breakdown.
func (k BreakdownKind) Valid() bool {
	switch k {
	case BreakdownSpendingByCategory, BreakdownFoodByQuality, BreakdownTimeByActivity:
		return true
	}
	return false
}

// BreakdownItem is one slice of a breakdown.
type BreakdownItem struct {
	Name       string  `json:"name"`
	Value      float64 `json:"value"`
	Percentage float64 `json:"percentage"`
}

// Breakdown splits a date range's events into slices, largest first.
type Breakdown struct {
	Kind  BreakdownKind   `json:"kind"`
	Start string          `json:"start"`
	End   string          `json:"end"`
	Items []BreakdownItem `json:"items"`
}

// DailyScores are one user's 0-100 life-area scores for a day. 50 is
// neutral.
type DailyScores struct {
	Date                string  `json:"date"`
	WalletScore         float64 `json:"wallet_score"`
	WellnessScore       float64 `json:"wellness_score"`
	SustainabilityScore float64 `json:"sustainability_score"`
	MovementScore       float64 `json:"movement_score"`
}
