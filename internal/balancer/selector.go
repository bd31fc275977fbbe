package balancer

// SelectProvider returns the next usable provider under the tiered
// round-robin policy: Healthy records first, Degraded records only when no
// Healthy one exists, Failed and Unknown records never. The cursor is
// shared and monotonic across all calls, so rotation is exactly fair only
// while tier membership stays stable between calls.
func (lb *LoadBalancer) SelectProvider() (*ProviderRecord, error) {
	rec := lb.next(nil)
	if rec == nil {
		return nil, ErrNoAvailableProviders
	}
	return rec, nil
}

// next picks from the eligible tier, skipping records already attempted for
// the current logical request. Returns nil when nothing is selectable.
func (lb *LoadBalancer) next(attempted map[string]bool) *ProviderRecord {
	lb.mutex.Lock()
	defer lb.mutex.Unlock()

	tier := lb.tier(StatusHealthy, attempted)
	if len(tier) == 0 {
		tier = lb.tier(StatusDegraded, attempted)
	}
	if len(tier) == 0 {
		return nil
	}

	rec := tier[lb.cursor%uint64(len(tier))]
	lb.cursor++
	return rec
}

// tier filters records by status in registration order. Callers must hold
// lb.mutex.
func (lb *LoadBalancer) tier(status ProviderStatus, attempted map[string]bool) []*ProviderRecord {
	tier := make([]*ProviderRecord, 0, len(lb.records))

	for _, rec := range lb.records {
		if attempted[rec.name] {
			continue
		}
		if rec.Status() == status {
			tier = append(tier, rec)
		}
	}

	return tier
}
