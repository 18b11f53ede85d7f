package layouts

import (
	"fmt"
	"html/template"
	"sort"
	"strings"

	"github.com/codr1/drivewise-admin/internal/models"
)

var knownStatuses = func() []string {
	seen := map[string]struct{}{}
	for _, set := range []models.StatusSet{models.BookingStatuses, models.InsuranceStatuses, models.GeneralRequestStatuses} {
		for _, status := range set {
			seen[status] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for status := range seen {
		out = append(out, status)
	}
	sort.Strings(out)
	return out
}()

// statusStylesheet emits one badge class per known status.
func statusStylesheet() template.CSS {
	var b strings.Builder
	b.WriteString(".badge{border-radius:9999px;padding:2px 8px;font-size:12px;}")
	for _, status := range knownStatuses {
		display := models.DisplayForStatus(status)
		fmt.Fprintf(&b, ".status-%s{background-color:%s;color:%s;}", status, display.BgColor, display.TextColor)
	}
	return template.CSS(b.String())
}
