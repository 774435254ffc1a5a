package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"geocubes.app/internal/client"
	"geocubes.app/internal/sim/tuning"
)

// A headless synthetic player: walks a random path around a starting fix,
// drops the occasional cube and tries to delete whatever it wanders close to.
// Useful for soaking a server without a phone in hand.
func main() {
	var (
		url = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		lat = flag.Float64("lat", 40.0, "starting latitude")
		lon = flag.Float64("lon", -75.0, "starting longitude")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)

	s, err := client.Dial(*url)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer s.Close()
	logger.Printf("connected id=%s", s.ID)

	tune := tuning.Defaults()
	gate := client.NewUplinkGate(time.Duration(tune.SendMinIntervalMs)*time.Millisecond, tune.DeadBandM)
	rec := client.NewReconciler(s.ID, tune.SmoothingRate)
	rec.OnBlockGone(func(id int64) { logger.Printf("block %d gone", id) })

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	curLat, curLon := *lat, *lon

	walk := time.NewTicker(500 * time.Millisecond)
	defer walk.Stop()
	act := time.NewTicker(7 * time.Second)
	defer act.Stop()

	for {
		select {
		case <-stop:
			return
		case <-s.Done():
			logger.Printf("connection closed")
			return

		case snap := <-s.Snapshots():
			rec.Apply(snap)
			rec.Step(0.5)

		case res := <-s.Results():
			if res.OK {
				logger.Printf("deleted block %d", res.BlockID)
			} else {
				logger.Printf("delete %d denied: %s (%.1fm)", res.BlockID, res.Reason, res.DistM)
			}

		case c := <-s.Counters():
			logger.Printf("deletedCubes=%d", c.DeletedCubes)

		case <-walk.C:
			// Wander a meter or two per step.
			curLat += (rng.Float64() - 0.5) * 4e-5
			curLon += (rng.Float64() - 0.5) * 4e-5
			rec.SetSelfFix(curLat, curLon)
			if gate.Offer(curLat, curLon) {
				if err := s.SendGps(curLat, curLon); err != nil {
					logger.Printf("send gps: %v", err)
					return
				}
			}
			_ = s.SendOrientation(rng.Float64() * 6.28)

		case <-act.C:
			switch rng.Intn(3) {
			case 0:
				if err := s.DropCube(curLat, curLon); err != nil {
					logger.Printf("drop: %v", err)
					return
				}
				logger.Printf("dropped cube at %.5f,%.5f", curLat, curLon)
			case 1:
				blocks := rec.Blocks()
				for id := range blocks {
					_ = s.DeleteCube(id)
					break
				}
			case 2:
				data, _ := json.Marshal(map[string]any{
					"peers":  len(rec.Peers()),
					"blocks": len(rec.Blocks()),
				})
				_ = s.SendTelemetry("bot_stats", data)
				_ = s.ToggleColor()
			}
			if o, ok := rec.Origin(); ok {
				self := rec.Self()
				logger.Printf("origin=%.5f,%.5f self=%s", o.Lat, o.Lon, fmtPos(self.X, self.Z))
			}
		}
	}
}

func fmtPos(x, z float64) string {
	return fmt.Sprintf("(%.1f east, %.1f north)", x, z)
}
