package usecase

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/plenumlab/speechqa/internal/core/domain"
)

// All temporal and entity extraction lives in this file as fixed pattern
// tables. The discrete-vs-contiguous distinction is the load-bearing rule:
// "2017 vs 2019" names two years and must never interpolate 2018.

// maxContiguousYears caps relative-range expansion ("since 1900" does not
// produce a century of partitions).
const maxContiguousYears = 30

var (
	yearPattern = regexp.MustCompile(`\b(19[5-9]\d|20\d{2})\b`)

	// Discrete comparison: two explicit years joined by a contrast marker.
	discretePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(19[5-9]\d|20\d{2})\s*(?:vs\.?|versus|compared\s+(?:with|to)|im\s+vergleich\s+(?:zu|mit)|gegen(?:ü|ue)ber)\s*(19[5-9]\d|20\d{2})\b`),
		regexp.MustCompile(`(?i)\b(?:between|zwischen)\s+(19[5-9]\d|20\d{2})\s+(?:and|und)\s+(19[5-9]\d|20\d{2})\b.*\b(?:difference|unterschied|vergleich)`),
		regexp.MustCompile(`(?i)\b(?:difference|unterschied\w*|vergleich\w*)\b.*\b(?:between|zwischen)\s+(19[5-9]\d|20\d{2})\s+(?:and|und)\s+(19[5-9]\d|20\d{2})\b`),
	}

	sincePattern     = regexp.MustCompile(`(?i)\b(?:since|seit|ab)\s+(19[5-9]\d|20\d{2})\b`)
	lastNPattern     = regexp.MustCompile(`(?i)\b(?:last|past|letzten|vergangenen)\s+(\d{1,2})\s+(?:years|jahren?)\b`)
	recentPattern    = regexp.MustCompile(`(?i)\b(?:in\s+recent\s+years|in\s+den\s+letzten\s+jahren|j(?:ü|ue)ngster\s+zeit)\b`)
	explicitSpan     = regexp.MustCompile(`(?i)\b(?:from|von)\s+(19[5-9]\d|20\d{2})\s+(?:to|until|bis)\s+(19[5-9]\d|20\d{2})\b`)
	recentYearsWidth = 5
)

// organizationLexicon maps surface forms to the canonical faction name.
// Longer forms first so "CDU/CSU" wins over "CDU".
var organizationLexicon = []struct {
	pattern   *regexp.Regexp
	canonical string
}{
	{regexp.MustCompile(`(?i)\bCDU\s*/\s*CSU\b`), "CDU/CSU"},
	{regexp.MustCompile(`(?i)\bB(?:ü|ue)ndnis\s*90\s*/\s*Die\s+Gr(?:ü|ue)nen\b`), "BÜNDNIS 90/DIE GRÜNEN"},
	{regexp.MustCompile(`(?i)\bDie\s+Gr(?:ü|ue)nen\b|\bGr(?:ü|ue)ne[n]?\b`), "BÜNDNIS 90/DIE GRÜNEN"},
	{regexp.MustCompile(`(?i)\bDie\s+Linke\b|\bLinkspartei\b`), "DIE LINKE"},
	{regexp.MustCompile(`\bCDU\b`), "CDU"},
	{regexp.MustCompile(`\bCSU\b`), "CSU"},
	{regexp.MustCompile(`\bSPD\b`), "SPD"},
	{regexp.MustCompile(`\bFDP\b`), "FDP"},
	{regexp.MustCompile(`\bAfD\b`), "AfD"},
}

// topicLexicon maps policy-area keywords to canonical topic labels.
var topicLexicon = []struct {
	pattern *regexp.Regexp
	topic   string
}{
	{regexp.MustCompile(`(?i)klima|climate|energiewende|kohleausstieg`), "Klimapolitik"},
	{regexp.MustCompile(`(?i)migration|asyl|zuwanderung|fl(?:ü|ue)chtling|refugee`), "Migration"},
	{regexp.MustCompile(`(?i)rente|pension|altersvorsorge`), "Rentenpolitik"},
	{regexp.MustCompile(`(?i)digitalisierung|digital|breitband`), "Digitalisierung"},
	{regexp.MustCompile(`(?i)gesundheit|pflege|krankenversicherung|health`), "Gesundheitspolitik"},
	{regexp.MustCompile(`(?i)verteidigung|bundeswehr|defen[cs]e|nato`), "Verteidigungspolitik"},
	{regexp.MustCompile(`(?i)wohnen|miete|wohnungsbau|housing`), "Wohnungspolitik"},
	{regexp.MustCompile(`(?i)steuer|haushalt|schuldenbremse|tax|budget`), "Haushalt und Steuern"},
	{regexp.MustCompile(`(?i)bildung|schule|hochschule|education`), "Bildungspolitik"},
	{regexp.MustCompile(`(?i)europa|eu[- ]|europ(?:ä|ae)isch`), "Europapolitik"},
}

// extractTimeRange resolves the question's temporal scope against now.
// Discrete comparisons override every contiguous interpretation.
func extractTimeRange(text string, now time.Time) (params domain.ExtractedParameters) {
	currentYear := now.Year()

	for _, pattern := range discretePatterns {
		match := pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		y1, _ := strconv.Atoi(match[1])
		y2, _ := strconv.Atoi(match[2])
		params.SpecificYears = uniqueSortedYears([]int{y1, y2})
		params.IsDiscrete = true
		params.StartYear = params.SpecificYears[0]
		params.EndYear = params.SpecificYears[len(params.SpecificYears)-1]
		return params
	}

	if match := explicitSpan.FindStringSubmatch(text); match != nil {
		start, _ := strconv.Atoi(match[1])
		end, _ := strconv.Atoi(match[2])
		return contiguousRange(start, end)
	}
	if match := sincePattern.FindStringSubmatch(text); match != nil {
		start, _ := strconv.Atoi(match[1])
		return contiguousRange(start, currentYear)
	}
	if match := lastNPattern.FindStringSubmatch(text); match != nil {
		n, _ := strconv.Atoi(match[1])
		if n < 1 {
			n = 1
		}
		return contiguousRange(currentYear-n+1, currentYear)
	}
	if recentPattern.MatchString(text) {
		return contiguousRange(currentYear-recentYearsWidth+1, currentYear)
	}

	years := uniqueSortedYears(extractYears(text))
	switch len(years) {
	case 0:
		return params
	case 1:
		params.StartYear = years[0]
		params.EndYear = years[0]
		params.SpecificYears = years
		return params
	default:
		return contiguousRange(years[0], years[len(years)-1])
	}
}

func contiguousRange(start, end int) domain.ExtractedParameters {
	if end < start {
		start, end = end, start
	}
	if end-start+1 > maxContiguousYears {
		start = end - maxContiguousYears + 1
	}
	params := domain.ExtractedParameters{StartYear: start, EndYear: end}
	for y := start; y <= end; y++ {
		params.SpecificYears = append(params.SpecificYears, y)
	}
	return params
}

func extractYears(text string) []int {
	matches := yearPattern.FindAllString(text, -1)
	years := make([]int, 0, len(matches))
	for _, m := range matches {
		y, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		years = append(years, y)
	}
	return years
}

func extractOrganizations(text string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, 2)
	masked := text
	for _, entry := range organizationLexicon {
		if !entry.pattern.MatchString(masked) {
			continue
		}
		// Mask matched spans so "CDU/CSU" is not re-counted as CDU and CSU.
		masked = entry.pattern.ReplaceAllString(masked, " ")
		if _, ok := seen[entry.canonical]; ok {
			continue
		}
		seen[entry.canonical] = struct{}{}
		out = append(out, entry.canonical)
	}
	return out
}

func extractTopics(text string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, 2)
	for _, entry := range topicLexicon {
		if !entry.pattern.MatchString(text) {
			continue
		}
		if _, ok := seen[entry.topic]; ok {
			continue
		}
		seen[entry.topic] = struct{}{}
		out = append(out, entry.topic)
	}
	return out
}

func uniqueSortedYears(years []int) []int {
	seen := make(map[int]struct{}, len(years))
	out := make([]int, 0, len(years))
	for _, y := range years {
		if _, ok := seen[y]; ok {
			continue
		}
		seen[y] = struct{}{}
		out = append(out, y)
	}
	sort.Ints(out)
	return out
}

func mergeStringSets(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, v := range list {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			key := strings.ToLower(v)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}
