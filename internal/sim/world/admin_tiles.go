package world

import (
	"context"
	"errors"
)

// TilesView is a point-in-time copy of the grid for readers outside the loop.
type TilesView struct {
	Tick   uint64
	Width  int
	Height int
	Funds  int
	Tiles  []uint16
}

type adminTilesReq struct {
	Resp chan TilesView
}

// RequestTiles copies the grid on the world loop goroutine.
func (w *World) RequestTiles(ctx context.Context) (TilesView, error) {
	if w == nil || w.tiles == nil {
		return TilesView{}, errors.New("tiles view not available")
	}
	resp := make(chan TilesView, 1)
	select {
	case w.tiles <- adminTilesReq{Resp: resp}:
	case <-ctx.Done():
		return TilesView{}, ctx.Err()
	}
	select {
	case v := <-resp:
		return v, nil
	case <-ctx.Done():
		return TilesView{}, ctx.Err()
	}
}

func (w *World) handleTilesRequest(req adminTilesReq) {
	if req.Resp == nil {
		return
	}
	select {
	case req.Resp <- w.tilesView():
	default:
	}
}

func (w *World) tilesView() TilesView {
	g := w.city.Grid()
	cells := g.Cells()
	out := make([]uint16, len(cells))
	for i, t := range cells {
		out[i] = uint16(t)
	}
	return TilesView{
		Tick:   w.tick.Load(),
		Width:  g.Width(),
		Height: g.Height(),
		Funds:  w.wallet.Available(),
		Tiles:  out,
	}
}
