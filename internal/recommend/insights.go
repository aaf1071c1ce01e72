package recommend

import (
	"fmt"

	"github.com/Veraticus/flavyr/internal/performance"
)

// Insight builds an actionable sentence for a tactical issue.
func Insight(is performance.Issue) string {
	switch is.Category {
	case performance.CategoryLoyalty:
		return fmt.Sprintf("Only %.1f%% of customers return against a %.1f%% benchmark. "+
			"A points or visit-based reward can convert first-time guests into regulars.", is.Actual, is.Benchmark)
	case performance.CategoryAOV:
		return fmt.Sprintf("Average order value is $%.2f against $%.2f expected. "+
			"Bundles and add-on prompts at checkout lift ticket size.", is.Actual, is.Benchmark)
	case performance.CategoryWeekend:
		return fmt.Sprintf("Weekend orders are only %.1f%% larger than weekday orders (expected %.1f%%). "+
			"Weekend-only premium specials can widen the gap.", is.Actual, is.Benchmark)
	case performance.CategorySlowDay:
		return fmt.Sprintf("%s traffic drops %.1f%% below the daily average (expected %.1f%%). "+
			"A day-specific promotion can fill the quiet service.", is.Subject, is.Actual, is.Benchmark)
	case performance.CategoryMenu:
		if is.Metric == performance.MetricTopItemShare {
			return fmt.Sprintf("'%s' drives %.1f%% of revenue. "+
				"Promote complementary items to reduce dependence on one dish.", is.Subject, is.Actual)
		}
		return fmt.Sprintf("%.0f items each earn a negligible share of revenue. "+
			"Trim or rework them to simplify inventory.", is.Actual)
	default:
		return fmt.Sprintf("Address %s to improve overall performance.", is.IssueType)
	}
}
