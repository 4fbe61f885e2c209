package adapter

// regionsFor picks the locale subset for one scan attempt. The window slides
// by the attempt number so consecutive retries hit different regions, which
// spreads traffic and routes around geographic blocks.
func regionsFor(regions []string, perCall, attempt int) []string {
	if len(regions) == 0 {
		return nil
	}
	if perCall <= 0 || perCall >= len(regions) {
		return regions
	}
	start := (attempt * perCall) % len(regions)
	out := make([]string, 0, perCall)
	for i := 0; i < perCall; i++ {
		out = append(out, regions[(start+i)%len(regions)])
	}
	return out
}
