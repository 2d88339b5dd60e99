package signals

import (
	"sort"
	"strings"
)

// AggregateTags sums tag weights across every track in m, matching tag
// names case-insensitively, and returns them by descending total. Ties keep
// the order in which tags were first seen, visiting m in key order.
func AggregateTags(m map[string]*Signals) []TagCount {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	index := make(map[string]int)
	var out []TagCount
	for _, k := range keys {
		s := m[k]
		if s == nil {
			continue
		}
		for _, tag := range s.TopTags {
			name := strings.ToLower(strings.TrimSpace(tag.Name))
			if name == "" {
				continue
			}
			i, ok := index[name]
			if !ok {
				i = len(out)
				index[name] = i
				out = append(out, TagCount{Tag: name})
			}
			out[i].Count += tag.Weight
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

// CalculateAveragePopularity returns mean listeners and playcount over the
// non-nil entries of m, or zeros when there are none.
func CalculateAveragePopularity(m map[string]*Signals) Popularity {
	var (
		listeners, plays int64
		n                int
	)
	for _, s := range m {
		if s == nil {
			continue
		}
		listeners += s.Listeners
		plays += s.Playcount
		n++
	}
	if n == 0 {
		return Popularity{}
	}
	return Popularity{
		AvgListeners: float64(listeners) / float64(n),
		AvgPlaycount: float64(plays) / float64(n),
	}
}
