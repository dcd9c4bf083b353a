package score

// combined blends correlation, DTW and (with caller peaks) the peak score
// in tiers keyed on the correlation. Poor correlations skip DTW entirely.
func (s *Scorer) combined(c *prepared) float64 {
	corr := correlate(&s.query, c, nil, 0)
	if corr < s.cfg.CombinedLow {
		return s.cfg.RejectScale * corr
	}

	dtw := s.dtwOrFallback(c)

	blend := s.cfg.BlendMid
	if corr >= s.cfg.CombinedHigh {
		blend = s.cfg.BlendHigh
	}
	if !s.caller {
		return blend.Correlation*corr + blend.DTW*dtw
	}

	blend = s.cfg.BlendMidPeaks
	if corr >= s.cfg.CombinedHigh {
		blend = s.cfg.BlendHighPeaks
	}
	return blend.Correlation*corr + blend.DTW*dtw + blend.Peak*s.peakScore(c)
}
