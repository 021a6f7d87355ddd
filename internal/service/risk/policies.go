package risk

import (
	"fmt"
	"math"

	"github.com/lifemosaic/negotiator/internal/model"
)

// Signal names shared between collectors and factors.
const (
	sigSleepDeficit  = "sleep_deficit_hours"
	sigLongFocusDays = "long_focus_days"
	sigLowMoodDays   = "low_mood_days"
	sigLateNights    = "late_night_sessions"
	sigFewBreakDays  = "few_break_days"
	sigRecoveryDays  = "recovery_days"
	sigPainReports   = "pain_reports"
	sigRehabSessions = "rehab_sessions"
	sigCurMinutes    = "movement_minutes"
	sigPrevMinutes   = "prev_movement_minutes"
	sigPoorForm      = "poor_form_sessions"
	sigRestDays      = "rest_days"
	sigMovementDays  = "movement_days"
	sigSocial        = "social_interactions"
	sigPrevSocial    = "prev_social_interactions"
	sigGroup         = "group_activities"
	sigWindowDays    = "window_days"
	sigSpend         = "spend"
	sigPrevSpend     = "prev_spend"
	sigRecurring     = "recurring_charges"
	sigEmergencyFund = "emergency_fund_months"
	sigHasFund       = "emergency_fund_known"
	sigDebt          = "debt_payments"
	sigPrevDebt      = "prev_debt_payments"
	sigIncome        = "income"
)

const (
	focusMinutesLimit = 180
	sleepTargetHours  = 7
)

// DefaultPolicies returns the built-in policy for every dimension.
func DefaultPolicies() map[model.RiskDimension]Policy {
	return map[model.RiskDimension]Policy{
		model.RiskBurnout:   burnoutPolicy(),
		model.RiskInjury:    injuryPolicy(),
		model.RiskIsolation: isolationPolicy(),
		model.RiskFinancial: financialPolicy(),
	}
}

func count(name, unit string) func(Signals) (float64, string) {
	return func(s Signals) (float64, string) {
		return s[name], fmt.Sprintf("%.0f %s", s[name], unit)
	}
}

func capped(name string, limit float64, unit string) func(Signals) (float64, string) {
	return func(s Signals) (float64, string) {
		return math.Min(s[name], limit), fmt.Sprintf("%.0f %s", s[name], unit)
	}
}

func burnoutPolicy() Policy {
	return Policy{
		Dimension:   model.RiskBurnout,
		DefaultDays: 7,
		MaxDays:     60,
		Types:       []model.EventType{model.EventSleep, model.EventWork, model.EventStudy, model.EventBreak, model.EventMood},
		Collect:     collectBurnout,
		Factors: []Factor{
			{
				Name:   "Sleep deficit",
				Weight: 20,
				Signal: func(s Signals) (float64, string) {
					return s[sigSleepDeficit], fmt.Sprintf("%.1f hours short per night on average", s[sigSleepDeficit])
				},
				Advice: "Protect a 7-hour sleep window for the next few nights.",
			},
			{Name: "Long focus days", Weight: 15, Signal: count(sigLongFocusDays, "days over 3 hours of work or study"),
				Advice: "Cap focused work at three hours a day and split the rest."},
			{Name: "Low mood", Weight: 10, Signal: count(sigLowMoodDays, "days with mood at 4 or below"),
				Advice: "Schedule something restorative you enjoy this week."},
			{Name: "Late nights", Weight: 10, Signal: count(sigLateNights, "sessions after 11pm"),
				Advice: "Stop work by 10pm to give your mind time to wind down."},
			{Name: "Too few breaks", Weight: 10, Signal: count(sigFewBreakDays, "work days with fewer than 2 breaks"),
				Advice: "Take a short break every 90 minutes of focus."},
			{Name: "Recovery days", Weight: -5, Signal: capped(sigRecoveryDays, 4, "days with full sleep and regular breaks")},
		},
		TierAdvice: map[model.RiskLevel][]string{
			model.RiskHigh:   {"Your load is unsustainable right now. Clear at least one commitment this week."},
			model.RiskMedium: {"Early signs of strain. Plan a lighter day soon."},
			model.RiskLow:    {"Your work and recovery look balanced. Keep it up."},
		},
	}
}

func collectBurnout(w Window) Signals {
	s := Signals{}
	days := byDay(w.Current)

	var deficit float64
	var nights int
	for _, day := range days {
		var slept float64
		var logged bool
		for _, e := range ofType(day, model.EventSleep) {
			if h, ok := hours(e); ok {
				slept += h
				logged = true
			}
		}
		if logged {
			deficit += math.Max(0, sleepTargetHours-slept)
			nights++
		}

		var focus float64
		work := ofType(day, model.EventWork, model.EventStudy)
		for _, e := range work {
			focus += minutes(e)
			h := e.OccurredAt.UTC().Hour()
			if h >= 23 || h < 4 {
				s[sigLateNights]++
			}
		}
		if focus > focusMinutesLimit {
			s[sigLongFocusDays]++
		}
		breaks := len(ofType(day, model.EventBreak))
		if len(work) > 0 && breaks < 2 {
			s[sigFewBreakDays]++
		}
		if logged && slept >= sleepTargetHours && breaks >= 2 {
			s[sigRecoveryDays]++
		}
	}
	if nights > 0 {
		s[sigSleepDeficit] = round2(deficit / float64(nights))
	}
	s[sigLowMoodDays] = float64(lowMoodDays(w.Current))
	return s
}

func injuryPolicy() Policy {
	return Policy{
		Dimension:   model.RiskInjury,
		DefaultDays: 7,
		MaxDays:     60,
		Types:       []model.EventType{model.EventMovement, model.EventPain},
		Collect:     collectInjury,
		Factors: []Factor{
			{
				Name:   "Skipped rehab",
				Weight: 25,
				Signal: func(s Signals) (float64, string) {
					if s[sigPainReports] > 0 && s[sigRehabSessions] == 0 {
						return 1, "pain reported with no rehab sessions logged"
					}
					return 0, ""
				},
				Advice: "Add your rehab exercises back before the next hard session.",
			},
			{
				Name:   "Training spike",
				Weight: 20,
				Signal: func(s Signals) (float64, string) {
					cur, prev := s[sigCurMinutes], s[sigPrevMinutes]
					if prev > 0 && cur > 1.3*prev {
						return 1, fmt.Sprintf("%.0f minutes vs %.0f the period before", cur, prev)
					}
					return 0, ""
				},
				Advice: "Keep weekly training volume within 30% of the previous week.",
			},
			{Name: "Pain reports", Weight: 15, Signal: count(sigPainReports, "pain reports"),
				Advice: "Back off the painful movement and get it checked if it persists."},
			{Name: "Poor form", Weight: 10, Signal: count(sigPoorForm, "sessions flagged for form"),
				Advice: "Drop the load and focus on technique."},
			{
				Name:   "Rest days",
				Weight: -5,
				Signal: func(s Signals) (float64, string) {
					if s[sigMovementDays] == 0 {
						return 0, ""
					}
					return math.Min(s[sigRestDays], 3), fmt.Sprintf("%.0f rest days", s[sigRestDays])
				},
			},
		},
		TierAdvice: map[model.RiskLevel][]string{
			model.RiskHigh:   {"High injury risk. Take a full rest day before training again."},
			model.RiskMedium: {"Watch your load and listen to early warning signs."},
			model.RiskLow:    {"Training load looks manageable."},
		},
	}
}

func collectInjury(w Window) Signals {
	s := Signals{}
	for _, e := range w.Current {
		switch e.EventType {
		case model.EventPain:
			s[sigPainReports]++
		case model.EventMovement:
			s[sigCurMinutes] += minutes(e)
			if e.MetadataBool("pain") {
				s[sigPainReports]++
			}
			if e.MetadataBool("rehab") || e.Category == "rehab" {
				s[sigRehabSessions]++
			}
			if form, ok := e.MetadataFloat("form_score"); (ok && form < 5) || e.MetadataString("form") == "poor" {
				s[sigPoorForm]++
			}
		}
	}
	for _, e := range ofType(w.Previous, model.EventMovement) {
		s[sigPrevMinutes] += minutes(e)
	}
	active := byDay(ofType(w.Current, model.EventMovement))
	s[sigMovementDays] = float64(len(active))
	s[sigRestDays] = float64(w.Days - len(active))
	return s
}

func isolationPolicy() Policy {
	return Policy{
		Dimension:   model.RiskIsolation,
		DefaultDays: 7,
		MaxDays:     60,
		Types:       []model.EventType{model.EventSocial, model.EventMood},
		Collect:     collectIsolation,
		Factors: []Factor{
			{
				Name:   "Little social contact",
				Weight: 30,
				Signal: func(s Signals) (float64, string) {
					want := 2 * s[sigWindowDays] / 7
					if s[sigSocial] < want {
						return 1, fmt.Sprintf("%.0f interactions, fewer than %.0f expected", s[sigSocial], math.Ceil(want))
					}
					return 0, ""
				},
				Advice: "Reach out to one friend or family member today.",
			},
			{
				Name:   "Low mood",
				Weight: 20,
				Signal: func(s Signals) (float64, string) {
					if s[sigLowMoodDays] >= 2 {
						return 1, fmt.Sprintf("%.0f days with mood at 4 or below", s[sigLowMoodDays])
					}
					return 0, ""
				},
				Advice: "Talk to someone you trust about how you have been feeling.",
			},
			{
				Name:   "Fewer interactions than before",
				Weight: 15,
				Signal: func(s Signals) (float64, string) {
					cur, prev := s[sigSocial], s[sigPrevSocial]
					if prev > 0 && cur < 0.5*prev {
						return 1, fmt.Sprintf("%.0f interactions vs %.0f the period before", cur, prev)
					}
					return 0, ""
				},
				Advice: "Restart a social routine that used to work for you.",
			},
			{
				Name:   "No group activities",
				Weight: 10,
				Signal: func(s Signals) (float64, string) {
					if s[sigGroup] == 0 {
						return 1, "no group activities logged"
					}
					return 0, ""
				},
				Advice: "Join a class, club or group event this week.",
			},
			{Name: "Group activities", Weight: -5, Signal: capped(sigGroup, 3, "group activities")},
		},
		TierAdvice: map[model.RiskLevel][]string{
			model.RiskHigh:   {"You have been quite isolated lately. Make a plan to see someone in person."},
			model.RiskMedium: {"Your social contact is dipping. A short call can help."},
			model.RiskLow:    {"You are staying connected."},
		},
	}
}

func collectIsolation(w Window) Signals {
	s := Signals{sigWindowDays: float64(w.Days)}
	for _, e := range ofType(w.Current, model.EventSocial) {
		s[sigSocial]++
		if e.MetadataBool("group") || e.Category == "group" {
			s[sigGroup]++
		}
	}
	s[sigPrevSocial] = float64(len(ofType(w.Previous, model.EventSocial)))
	s[sigLowMoodDays] = float64(lowMoodDays(w.Current))
	return s
}

func financialPolicy() Policy {
	return Policy{
		Dimension:   model.RiskFinancial,
		DefaultDays: 30,
		MaxDays:     120,
		Types:       []model.EventType{model.EventSpending, model.EventIncome},
		Collect:     collectFinancial,
		Factors: []Factor{
			{
				Name:   "Spending velocity",
				Weight: 40,
				Signal: func(s Signals) (float64, string) {
					cur, prev := s[sigSpend], s[sigPrevSpend]
					if prev > 0 && cur > 1.25*prev {
						return 1, fmt.Sprintf("spent %.2f vs %.2f the period before", cur, prev)
					}
					return 0, ""
				},
				Advice: "Pause non-essential purchases until spending is back on track.",
			},
			{
				Name:   "Emergency fund low",
				Weight: 30,
				Signal: func(s Signals) (float64, string) {
					if s[sigHasFund] > 0 && s[sigEmergencyFund] < 3 {
						return 1, fmt.Sprintf("%.1f months of expenses saved", s[sigEmergencyFund])
					}
					return 0, ""
				},
				Advice: "Set up an automatic transfer toward three months of expenses.",
			},
			{
				Name:   "Recurring charges",
				Weight: 20,
				Signal: func(s Signals) (float64, string) {
					if s[sigRecurring] >= 3 {
						return 1, fmt.Sprintf("%.0f recurring charges", s[sigRecurring])
					}
					return 0, ""
				},
				Advice: "Review subscriptions and cancel the ones you rarely use.",
			},
			{
				Name:   "Debt trend",
				Weight: 20,
				Signal: func(s Signals) (float64, string) {
					if s[sigDebt] > s[sigPrevDebt] {
						return 1, fmt.Sprintf("debt spending %.2f vs %.2f the period before", s[sigDebt], s[sigPrevDebt])
					}
					return 0, ""
				},
				Advice: "Focus extra payments on the highest-interest balance.",
			},
			{
				Name:   "Positive cash flow",
				Weight: -10,
				Signal: func(s Signals) (float64, string) {
					if s[sigIncome] > 0 && s[sigIncome] >= 1.2*s[sigSpend] {
						return 1, fmt.Sprintf("income %.2f vs spending %.2f", s[sigIncome], s[sigSpend])
					}
					return 0, ""
				},
			},
		},
		TierAdvice: map[model.RiskLevel][]string{
			model.RiskHigh:   {"Your finances need attention now. Build a bare-bones budget for the next month."},
			model.RiskMedium: {"Some spending pressure is building. Review this month's purchases."},
			model.RiskLow:    {"Your finances look stable."},
		},
	}
}

func isDebt(e model.Event) bool {
	return e.Category == "debt" || e.MetadataBool("debt")
}

func collectFinancial(w Window) Signals {
	s := Signals{}
	var latestFund model.Event
	for _, e := range w.Current {
		switch e.EventType {
		case model.EventSpending:
			s[sigSpend] += absAmount(e)
			if e.MetadataBool("recurring") {
				s[sigRecurring]++
			}
			if isDebt(e) {
				s[sigDebt] += absAmount(e)
			}
		case model.EventIncome:
			s[sigIncome] += absAmount(e)
		}
		if _, ok := e.MetadataFloat(sigEmergencyFund); ok && !e.OccurredAt.Before(latestFund.OccurredAt) {
			latestFund = e
		}
	}
	if v, ok := latestFund.MetadataFloat(sigEmergencyFund); ok {
		s[sigEmergencyFund] = v
		s[sigHasFund] = 1
	}
	for _, e := range ofType(w.Previous, model.EventSpending) {
		s[sigPrevSpend] += absAmount(e)
		if isDebt(e) {
			s[sigPrevDebt] += absAmount(e)
		}
	}
	s[sigSpend] = round2(s[sigSpend])
	s[sigPrevSpend] = round2(s[sigPrevSpend])
	return s
}
