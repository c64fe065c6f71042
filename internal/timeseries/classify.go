package timeseries

// VectorClassification partitions a requested vector-name list into the
// three disjoint kinds an accessor can serve. Requested names matching
// none of the kinds are ignored.
type VectorClassification struct {
	// Provider holds requested names that exist verbatim among the
	// provider's vector names.
	Provider []string
	// Rate holds requested names carrying a per-day/per-interval prefix
	// whose derived cumulative name exists among the provider's vectors.
	Rate []string
	// Calculated holds requested names matching the name of a valid
	// expression, in requested order, deduplicated.
	Calculated []string
}

// ClassifyVectors partitions requested into provider, rate and calculated
// subsets against the provider's vector-name universe and the supplied
// expressions. A name matching several rules lands in exactly one subset:
// the verbatim provider match wins over the rate-prefix rule, which wins
// over the expression match. Order follows requested; duplicates are
// dropped. Expressions with an unset IsValid flag never match.
func ClassifyVectors(requested []string, providerNames []string, expressions []Expression) VectorClassification {
	providerSet := make(map[string]struct{}, len(providerNames))
	for _, name := range providerNames {
		providerSet[name] = struct{}{}
	}
	expressionSet := make(map[string]struct{}, len(expressions))
	for _, e := range expressions {
		if e.IsValid {
			expressionSet[e.Name] = struct{}{}
		}
	}

	var cls VectorClassification
	seen := make(map[string]struct{}, len(requested))
	for _, name := range requested {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		if _, ok := providerSet[name]; ok {
			cls.Provider = append(cls.Provider, name)
			continue
		}
		if IsRateVector(name) {
			if cumulative, err := CumulativeNameFor(name); err == nil {
				if _, ok := providerSet[cumulative]; ok {
					cls.Rate = append(cls.Rate, name)
					continue
				}
			}
		}
		if _, ok := expressionSet[name]; ok {
			cls.Calculated = append(cls.Calculated, name)
		}
	}
	return cls
}
