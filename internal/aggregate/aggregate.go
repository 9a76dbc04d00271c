package aggregate

import (
	"fmt"
	"sort"
	"strings"

	"actcal/internal/model"
)

const (
	// IdleTitle and IdleDetail are reported when no activity time was observed.
	IdleTitle  = "PC was off"
	IdleDetail = "No activity recorded"

	unknownApp  = "unknown"
	otherBucket = "Other"

	majorShare    = 0.05
	titlesPerApp  = 5
	tabsInSection = 10
)

// DefaultBrowsers are the process names whose window titles are treated as
// browser tabs.
var DefaultBrowsers = []string{"chrome.exe", "msedge.exe", "brave.exe", "firefox.exe"}

// BrowserSet is a case-insensitive allow-list of browser app names.
type BrowserSet map[string]struct{}

// NewBrowserSet builds a BrowserSet from names.
func NewBrowserSet(names ...string) BrowserSet {
	s := make(BrowserSet, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" {
			s[n] = struct{}{}
		}
	}
	return s
}

func (s BrowserSet) has(app string) bool {
	_, ok := s[app]
	return ok
}

type titleTime struct {
	title    string
	duration float64
}

// bucket is a named duration; first-seen order is kept by the slices that
// hold them so that sorting with sort.SliceStable breaks ties predictably.
type bucket struct {
	name     string
	duration float64
}

// Aggregate reduces raw activity into a ranked title line and a detailed
// breakdown. It never fails; an empty or zero-duration input yields the
// idle sentinels.
func Aggregate(events []model.ActivityEvent, browsers BrowserSet) model.AggregationResult {
	var total float64

	appOrder := make([]string, 0)
	appUsage := make(map[string]float64)
	appTitles := make(map[string][]titleTime)
	titledApps := make([]string, 0)
	tabOrder := make([]string, 0)
	tabUsage := make(map[string]float64)

	for _, ev := range events {
		d := ev.Duration
		if d < 0 {
			d = 0
		}
		app := strings.ToLower(ev.App)
		if app == "" {
			app = unknownApp
		}

		total += d
		if _, seen := appUsage[app]; !seen {
			appOrder = append(appOrder, app)
		}
		appUsage[app] += d

		if browsers.has(app) {
			if ev.Title != "" {
				if _, seen := tabUsage[ev.Title]; !seen {
					tabOrder = append(tabOrder, ev.Title)
				}
				tabUsage[ev.Title] += d
			}
			continue
		}
		if _, seen := appTitles[app]; !seen {
			titledApps = append(titledApps, app)
		}
		appTitles[app] = append(appTitles[app], titleTime{title: ev.Title, duration: d})
	}

	if total == 0 {
		return model.AggregationResult{TitleLine: IdleTitle, DetailText: IdleDetail, Idle: true}
	}

	detail := detailText(titledApps, appTitles, tabOrder, tabUsage, total)
	if detail == "" {
		// Only untitled browser time: fall back to per-app shares.
		lines := make([]string, 0, len(appOrder))
		for _, app := range appOrder {
			lines = append(lines, fmt.Sprintf("%s (%.1f%%):", app, appUsage[app]/total*100))
		}
		detail = strings.Join(lines, "\n")
	}

	return model.AggregationResult{
		TitleLine:  titleLine(appOrder, appUsage, total),
		DetailText: detail,
	}
}

func titleLine(order []string, usage map[string]float64, total float64) string {
	major := make([]bucket, 0, len(order)+1)
	var other float64
	for _, app := range order {
		t := usage[app]
		if t/total >= majorShare {
			major = append(major, bucket{name: app, duration: t})
		} else {
			other += t
		}
	}
	if other > 0 {
		major = append(major, bucket{name: otherBucket, duration: other})
	}

	sort.SliceStable(major, func(i, j int) bool {
		return major[i].duration > major[j].duration
	})

	parts := make([]string, 0, len(major))
	for _, b := range major {
		parts = append(parts, fmt.Sprintf("%s %.0f%%", cleanAppName(b.name), b.duration/total*100))
	}
	return strings.Join(parts, ", ")
}

func detailText(apps []string, titles map[string][]titleTime, tabOrder []string, tabs map[string]float64, total float64) string {
	lines := make([]string, 0)

	for _, app := range apps {
		entries := titles[app]
		var appTotal float64
		for _, e := range entries {
			appTotal += e.duration
		}
		lines = append(lines, fmt.Sprintf("%s (%.1f%%):", app, appTotal/total*100))

		sorted := make([]titleTime, len(entries))
		copy(sorted, entries)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].duration > sorted[j].duration
		})
		if len(sorted) > titlesPerApp {
			sorted = sorted[:titlesPerApp]
		}
		for _, e := range sorted {
			lines = append(lines, fmt.Sprintf("   • %s (~%.1fm)", e.title, e.duration/60))
		}
	}

	if len(tabs) > 0 {
		lines = append(lines, "\nBrowser activity (tabs):")
		sorted := make([]bucket, 0, len(tabOrder))
		for _, tab := range tabOrder {
			sorted = append(sorted, bucket{name: tab, duration: tabs[tab]})
		}
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].duration > sorted[j].duration
		})
		if len(sorted) > tabsInSection {
			sorted = sorted[:tabsInSection]
		}
		for _, b := range sorted {
			lines = append(lines, fmt.Sprintf("   • %s (~%.1fm, %.1f%%)", b.name, b.duration/60, b.duration/total*100))
		}
	}

	return strings.Join(lines, "\n")
}

// cleanAppName drops a trailing Windows executable suffix.
func cleanAppName(app string) string {
	return strings.TrimSuffix(app, ".exe")
}
