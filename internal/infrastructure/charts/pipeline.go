package charts

import (
	"fmt"
	"io"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/Norvan25/homenest-nous-sub002/internal/domain"
	"github.com/Norvan25/homenest-nous-sub002/internal/ports"
)

// PipelineRenderer draws lead counts per status as a PNG bar chart.
type PipelineRenderer struct {
	Width  int
	Height int
}

var _ ports.ChartRenderer = PipelineRenderer{}

// NewPipelineRenderer uses a dashboard-sized canvas.
func NewPipelineRenderer() PipelineRenderer {
	return PipelineRenderer{Width: 1100, Height: 600}
}

// RenderPipeline writes one bar per status in pipeline order.
func (r PipelineRenderer) RenderPipeline(w io.Writer, stats domain.PipelineStats) error {
	bars := make([]chart.Value, 0, len(domain.LeadStatuses))
	maxVal := 0
	for _, status := range domain.LeadStatuses {
		v := stats.ByStatus[status]
		if v > maxVal {
			maxVal = v
		}
		bars = append(bars, chart.Value{Value: float64(v), Label: string(status)})
	}

	// go-chart rejects an empty data range
	yMax := float64(maxVal)
	if yMax <= 0 {
		yMax = 1
	}

	graph := chart.BarChart{
		Title:    fmt.Sprintf("Pipeline (%d leads)", stats.Total),
		Width:    r.Width,
		Height:   r.Height,
		BarWidth: 56,
		Background: chart.Style{Padding: chart.Box{
			Top:    50,
			Left:   16,
			Right:  16,
			Bottom: 0,
		}},
		YAxis: chart.YAxis{Range: &chart.ContinuousRange{Min: 0, Max: yMax}},
		Bars:  bars,
	}
	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render pipeline chart: %w", err)
	}
	return nil
}
