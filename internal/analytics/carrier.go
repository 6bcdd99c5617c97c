package analytics

import (
	"sort"

	"demcli/pkg/contracts/domain"
)

// maxCarrierBars caps the per-carrier charts at the worst offenders.
const maxCarrierBars = 10

// maxTopProblems caps the problem-container list in the insight summary.
const maxTopProblems = 5

// AggregateByCarrier groups records by shipowner and ranks the carriers by
// the chosen metric, descending, keeping at most the top ten. Records with
// date errors never contribute; neither do records with nothing to report
// for the metric (zero cost, zero days).
func AggregateByCarrier(records []domain.ContainerRecord, metric domain.CarrierMetric) []domain.CarrierAggregate {
	type accumulator struct {
		total float64
		count int
	}
	groups := make(map[string]*accumulator)

	for _, rec := range records {
		if rec.HasDateError {
			continue
		}
		var contribution float64
		switch metric {
		case domain.MetricAvgDays:
			if rec.DemurrageDays <= 0 {
				continue
			}
			contribution = float64(rec.DemurrageDays)
		default:
			if rec.DemurrageCost <= 0 {
				continue
			}
			contribution = rec.DemurrageCost
		}

		acc, ok := groups[rec.Shipowner]
		if !ok {
			acc = &accumulator{}
			groups[rec.Shipowner] = acc
		}
		acc.total += contribution
		acc.count++
	}

	out := make([]domain.CarrierAggregate, 0, len(groups))
	for carrier, acc := range groups {
		value := acc.total
		if metric == domain.MetricAvgDays {
			value = acc.total / float64(acc.count)
		}
		out = append(out, domain.CarrierAggregate{Shipowner: carrier, Value: value, Count: acc.count})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Shipowner < out[j].Shipowner
	})
	if len(out) > maxCarrierBars {
		out = out[:maxCarrierBars]
	}
	return out
}

// ComputePaidSummary totals demurrage cost over the returned-with-cost
// containers and splits it by settlement status.
func ComputePaidSummary(records []domain.ContainerRecord, paid domain.PaidStatusMap) domain.PaidSummary {
	var s domain.PaidSummary

	for _, rec := range records {
		if rec.HasDateError || rec.Active() || rec.DemurrageDays <= 0 {
			continue
		}
		s.TotalCost += rec.DemurrageCost
		if paid[rec.Container] {
			s.PaidCost += rec.DemurrageCost
		} else {
			s.PendingCost += rec.DemurrageCost
		}
	}
	return s
}

// ComputeInsights assembles the structured analysis feed for the summary
// panel: overall totals, the outcome breakdown, the worst carriers on both
// metrics and the most expensive individual containers.
func ComputeInsights(records []domain.ContainerRecord, kpis domain.KPISet) domain.InsightSummary {
	summary := domain.InsightSummary{
		TotalContainers: len(records),
		TotalCost:       kpis.TotalCost,
		Breakdown: domain.StatusBreakdown{
			ActiveLate:     kpis.WithDemurrage,
			ReturnedLate:   kpis.ReturnedLate,
			AtRiskNext15:   kpis.AtRisk15,
			ReturnedOnTime: kpis.ReturnedOnTime,
		},
		TopCarriersByCost: AggregateByCarrier(records, domain.MetricCost),
		TopCarriersByDays: AggregateByCarrier(records, domain.MetricAvgDays),
	}

	problems := make([]domain.ContainerRecord, 0, len(records))
	for _, rec := range records {
		if rec.HasDateError || rec.DemurrageCost <= 0 {
			continue
		}
		problems = append(problems, rec)
	}
	sort.Slice(problems, func(i, j int) bool {
		if problems[i].DemurrageCost != problems[j].DemurrageCost {
			return problems[i].DemurrageCost > problems[j].DemurrageCost
		}
		return problems[i].Container < problems[j].Container
	})
	if len(problems) > maxTopProblems {
		problems = problems[:maxTopProblems]
	}
	for _, rec := range problems {
		summary.TopProblems = append(summary.TopProblems, domain.ProblemContainer{
			Container:     rec.Container,
			Shipowner:     rec.Shipowner,
			DemurrageDays: rec.DemurrageDays,
			DemurrageCost: rec.DemurrageCost,
		})
	}
	return summary
}
