package gbm

import (
	"math"
	"math/rand"

	"github.com/YuminosukeSato/riskml/core/parallel"
)

// splitInfo describes the best split of one leaf.
type splitInfo struct {
	feature int
	bin     int
	gain    float64 // without random-strength noise
	score   float64 // gain used for selection
	ok      bool
}

type leafState struct {
	node  int
	rows  []int // every row routed to the leaf, in or out of bag
	depth int
	value float64
	split splitInfo
}

// grower builds one tree from gradients g, h and row weights w
// (w == 0 means the row is out of bag for this tree or level).
type grower struct {
	p        *Params
	mapper   *binMapper
	data     *binnedData
	g, h, w  []float64
	features []int
	rng      *rand.Rand
	noise    float64
	resample func()

	importance []float64
	tree       Tree
}

func thresholdL1(g, alpha float64) float64 {
	switch {
	case g > alpha:
		return g - alpha
	case g < -alpha:
		return g + alpha
	default:
		return 0
	}
}

func (gr *grower) leafScore(g, h float64) float64 {
	t := thresholdL1(g, gr.p.LambdaL1)
	d := h + gr.p.LambdaL2
	if d <= 0 {
		return 0
	}
	return t * t / d
}

func (gr *grower) rawLeafValue(g, h float64) float64 {
	d := h + gr.p.LambdaL2
	if d <= 0 {
		return 0
	}
	return -thresholdL1(g, gr.p.LambdaL1) / d
}

// leafValue applies path smoothing towards the parent output.
func (gr *grower) leafValue(g, h float64, count int, parent float64) float64 {
	if count == 0 {
		return parent
	}
	v := gr.rawLeafValue(g, h)
	if s := gr.p.PathSmooth; s > 0 {
		n := float64(count)
		v = (v*n + parent*s) / (n + s)
	}
	return v
}

func (gr *grower) stats(rows []int) (g, h float64, count int) {
	for _, i := range rows {
		if w := gr.w[i]; w > 0 {
			g += w * gr.g[i]
			h += w * gr.h[i]
			count++
		}
	}
	return g, h, count
}

func (gr *grower) histogram(feature int, rows []int) []histBin {
	hist := make([]histBin, gr.mapper.numBins(feature))
	col := gr.data.cols[feature]
	for _, i := range rows {
		w := gr.w[i]
		if w <= 0 {
			continue
		}
		b := &hist[col[i]]
		b.grad += w * gr.g[i]
		b.hess += w * gr.h[i]
		b.count++
	}
	return hist
}

// bestSplit scans the histograms of every sampled feature.
func (gr *grower) bestSplit(rows []int) splitInfo {
	G, H, N := gr.stats(rows)
	parentScore := gr.leafScore(G, H)
	perFeature := make([]splitInfo, len(gr.features))

	parallel.ParallelizeN(len(gr.features), gr.p.NumThreads, func(start, end int) {
		for k := start; k < end; k++ {
			f := gr.features[k]
			hist := gr.histogram(f, rows)
			best := splitInfo{feature: f}
			var lg, lh float64
			lc := 0
			for b := 0; b < len(hist)-1; b++ {
				lg += hist[b].grad
				lh += hist[b].hess
				lc += hist[b].count
				rc := N - lc
				if lc < gr.p.MinDataInLeaf || rc < gr.p.MinDataInLeaf || lc == 0 || rc == 0 {
					continue
				}
				rh := H - lh
				if lh < gr.p.MinChildWeight || rh < gr.p.MinChildWeight {
					continue
				}
				gain := 0.5 * (gr.leafScore(lg, lh) + gr.leafScore(G-lg, rh) - parentScore)
				if gain > gr.p.MinSplitGain && (!best.ok || gain > best.gain) {
					best = splitInfo{feature: f, bin: b, gain: gain, score: gain, ok: true}
				}
			}
			perFeature[k] = best
		}
	})

	var best splitInfo
	for _, s := range perFeature {
		if !s.ok {
			continue
		}
		if gr.noise > 0 {
			s.score = s.gain + gr.noise*gr.rng.NormFloat64()
		}
		if !best.ok || s.score > best.score {
			best = s
		}
	}
	return best
}

func (gr *grower) newLeaf(rows []int, depth int, parent float64) *leafState {
	g, h, c := gr.stats(rows)
	idx := len(gr.tree.Nodes)
	v := gr.leafValue(g, h, c, parent)
	gr.tree.Nodes = append(gr.tree.Nodes, Node{Left: -1, Right: -1, Value: v, Count: c})
	return &leafState{node: idx, rows: rows, depth: depth, value: v}
}

// apply turns leaf into a split node and returns its two children.
func (gr *grower) apply(leaf *leafState, s splitInfo) (*leafState, *leafState) {
	col := gr.data.cols[s.feature]
	var left, right []int
	for _, i := range leaf.rows {
		if int(col[i]) <= s.bin {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	l := gr.newLeaf(left, leaf.depth+1, leaf.value)
	r := gr.newLeaf(right, leaf.depth+1, leaf.value)
	nd := &gr.tree.Nodes[leaf.node]
	nd.Feature = s.feature
	nd.Threshold = gr.mapper.threshold(s.feature, s.bin)
	nd.Left = l.node
	nd.Right = r.node
	nd.Gain = s.gain
	return l, r
}

func (gr *grower) levelResample() {
	if gr.p.SamplingFrequency == PerTreeLevel && gr.resample != nil {
		gr.resample()
	}
}

// grow builds the tree and returns the leaves.
func (gr *grower) grow(rows []int) []*leafState {
	gr.tree = Tree{}
	root := gr.newLeaf(rows, 0, 0)
	switch gr.p.GrowPolicy {
	case Depthwise:
		return gr.growDepthwise(root)
	case SymmetricTree:
		return gr.growSymmetric(root)
	default:
		return gr.growLossguide(root)
	}
}

func (gr *grower) growDepthwise(root *leafState) []*leafState {
	level := []*leafState{root}
	var done []*leafState
	for depth := 0; depth < gr.p.MaxDepth && len(level) > 0; depth++ {
		if depth > 0 {
			gr.levelResample()
		}
		var next []*leafState
		for _, lf := range level {
			s := gr.bestSplit(lf.rows)
			if !s.ok {
				done = append(done, lf)
				continue
			}
			l, r := gr.apply(lf, s)
			gr.importance[s.feature] += s.gain
			next = append(next, l, r)
		}
		level = next
	}
	return append(done, level...)
}

func (gr *grower) growLossguide(root *leafState) []*leafState {
	canSplit := func(lf *leafState) bool {
		return gr.p.MaxDepth == 0 || lf.depth < gr.p.MaxDepth
	}
	leaves := []*leafState{root}
	if canSplit(root) {
		root.split = gr.bestSplit(root.rows)
	}
	for gr.p.NumLeaves == 0 || len(leaves) < gr.p.NumLeaves {
		bestIdx := -1
		for i, lf := range leaves {
			if lf.split.ok && (bestIdx < 0 || lf.split.score > leaves[bestIdx].split.score) {
				bestIdx = i
			}
		}
		if bestIdx < 0 {
			break
		}
		lf := leaves[bestIdx]
		l, r := gr.apply(lf, lf.split)
		gr.importance[lf.split.feature] += lf.split.gain
		for _, c := range []*leafState{l, r} {
			if canSplit(c) {
				c.split = gr.bestSplit(c.rows)
			}
		}
		leaves[bestIdx] = l
		leaves = append(leaves, r)
	}
	return leaves
}

// growSymmetric picks one (feature, bin) per level maximising the summed
// gain over all current leaves.
func (gr *grower) growSymmetric(root *leafState) []*leafState {
	level := []*leafState{root}
	for depth := 0; depth < gr.p.MaxDepth; depth++ {
		if depth > 0 {
			gr.levelResample()
		}

		type leafStats struct {
			g, h  float64
			score float64
		}
		ls := make([]leafStats, len(level))
		for k, lf := range level {
			g, h, _ := gr.stats(lf.rows)
			ls[k] = leafStats{g: g, h: h, score: gr.leafScore(g, h)}
		}

		perFeature := make([]splitInfo, len(gr.features))
		parallel.ParallelizeN(len(gr.features), gr.p.NumThreads, func(start, end int) {
			for k := start; k < end; k++ {
				f := gr.features[k]
				nBins := gr.mapper.numBins(f)
				total := make([]float64, nBins)
				for li, lf := range level {
					hist := gr.histogram(f, lf.rows)
					var lg, lh float64
					for b := 0; b < nBins-1; b++ {
						lg += hist[b].grad
						lh += hist[b].hess
						total[b] += 0.5 * (gr.leafScore(lg, lh) + gr.leafScore(ls[li].g-lg, ls[li].h-lh) - ls[li].score)
					}
				}
				best := splitInfo{feature: f}
				for b := 0; b < nBins-1; b++ {
					if total[b] > gr.p.MinSplitGain && (!best.ok || total[b] > best.gain) {
						best = splitInfo{feature: f, bin: b, gain: total[b], score: total[b], ok: true}
					}
				}
				perFeature[k] = best
			}
		})

		var best splitInfo
		for _, s := range perFeature {
			if !s.ok {
				continue
			}
			if gr.noise > 0 {
				s.score = s.gain + gr.noise*gr.rng.NormFloat64()
			}
			if !best.ok || s.score > best.score {
				best = s
			}
		}
		if !best.ok {
			break
		}

		next := make([]*leafState, 0, 2*len(level))
		for _, lf := range level {
			l, r := gr.apply(lf, best)
			next = append(next, l, r)
		}
		gr.importance[best.feature] += best.gain
		level = next
	}
	return level
}

// gradNoise returns the random-strength noise scale for an iteration.
func gradNoise(p *Params, g []float64, iter int) float64 {
	if p.RandomStrength <= 0 {
		return 0
	}
	var ss float64
	for _, v := range g {
		ss += v * v
	}
	scale := math.Sqrt(ss / float64(len(g)))
	decay := 1 - float64(iter)/float64(p.NumIterations)
	return p.RandomStrength * scale * decay
}
