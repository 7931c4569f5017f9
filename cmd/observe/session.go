package main

import (
	"encoding/json"
	"sync"
	"time"

	"hexworld.dev/internal/geom"
	"hexworld.dev/internal/observerproto"
	"hexworld.dev/internal/render"
	"hexworld.dev/internal/tuning"
	"hexworld.dev/internal/world"
)

// session owns the loaded map and drives the frame loop. It satisfies
// observer.Source; subscribers each carry their own camera.
type session struct {
	m   *world.Map
	tun tuning.Tuning
	fps int

	compositor *render.Compositor

	mu    sync.Mutex
	frame uint64
	subs  map[uint64]*subscriber
}

type subscriber struct {
	out chan<- []byte
	cam render.Camera
	tog render.Toggles
}

func newSession(m *world.Map, tun tuning.Tuning, fps int) *session {
	if fps <= 0 {
		fps = 10
	}
	c := render.NewCompositor(nil)
	c.MarginX = tun.Render.MarginX
	c.MarginY = tun.Render.MarginY
	return &session{
		m:          m,
		tun:        tun,
		fps:        fps,
		compositor: c,
		subs:       make(map[uint64]*subscriber),
	}
}

func (s *session) Bootstrap() observerproto.BootstrapResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := observerproto.BootstrapResponse{
		ProtocolVersion: observerproto.Version,
		MapName:         s.m.Name,
		MapParams: observerproto.MapParams{
			HexGridSize:    world.HexGridSize,
			SqrGridSize:    world.SqrGridSize,
			ViewportWidth:  s.tun.Render.ViewportWidth,
			ViewportHeight: s.tun.Render.ViewportHeight,
			AmbientLight:   s.m.World.AmbientLight,
		},
	}
	for e := 0; e < world.ElevationCount; e++ {
		if s.m.World.HasElevation(e) {
			resp.Elevations = append(resp.Elevations, e)
		}
	}
	if s.m.World.HasElevation(s.m.Entrance.Elevation) {
		resp.Entrance = &observerproto.TileRef{
			X:         s.m.Entrance.Point.X,
			Y:         s.m.Entrance.Point.Y,
			Elevation: s.m.Entrance.Elevation,
		}
	}
	return resp
}

func (s *session) Subscribe(id uint64, out chan<- []byte, sub observerproto.SubscribeMsg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[id] = &subscriber{
		out: out,
		cam: s.camera(sub),
		tog: render.Toggles{Roof: sub.Roof},
	}
}

func (s *session) Update(id uint64, sub observerproto.SubscribeMsg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sc := s.subs[id]; sc != nil {
		sc.cam = s.camera(sub)
		sc.tog = render.Toggles{Roof: sub.Roof}
	}
}

func (s *session) Unsubscribe(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}

func (s *session) camera(sub observerproto.SubscribeMsg) render.Camera {
	cam := render.Camera{
		Viewport: geom.Rect{
			Right:  s.tun.Render.ViewportWidth,
			Bottom: s.tun.Render.ViewportHeight,
		},
	}
	look := geom.Pt(sub.LookX, sub.LookY)
	if !s.m.World.HexGrid().InBounds(look) {
		look = s.m.Entrance.Point
	}
	cam.LookAt(look)
	return cam
}

func (s *session) run() {
	interval := time.Second / time.Duration(s.fps)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		s.step(interval)
	}
}

func (s *session) step(elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.m.World.AdvanceAnimations(elapsed)
	s.frame++

	for _, sc := range s.subs {
		entries := s.compositor.Compose(s.m.World, sc.cam, sc.tog)
		msg := frameMsg(s.frame, sc.cam, entries)
		b, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		// Slow clients drop frames rather than stall the loop.
		select {
		case sc.out <- b:
		default:
		}
	}
}

var entryKindNames = map[render.EntryKind]string{
	render.EntryFloor:  "floor",
	render.EntryObject: "object",
	render.EntryRoof:   "roof",
}

func frameMsg(frame uint64, cam render.Camera, entries []render.Entry) observerproto.FrameMsg {
	msg := observerproto.FrameMsg{
		Type:            "FRAME",
		ProtocolVersion: observerproto.Version,
		Frame:           frame,
		CameraX:         cam.Origin.X,
		CameraY:         cam.Origin.Y,
		Entries:         make([]observerproto.DrawEntry, 0, len(entries)),
	}
	for _, e := range entries {
		msg.Entries = append(msg.Entries, observerproto.DrawEntry{
			Kind:        entryKindNames[e.Kind],
			Elevation:   e.Elevation,
			Handle:      uint32(e.Handle),
			Sprite:      e.SpriteName,
			Direction:   int(e.Direction),
			Frame:       e.Frame,
			X:           e.Pos.X,
			Y:           e.Pos.Y,
			Light:       e.Light,
			Placeholder: e.Placeholder(),
		})
	}
	return msg
}
