/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"sync/atomic"

	"go.mongodb.org/mongo-driver/event"
)

// poolStats counts connection pool events so the manager can report DBStats;
// the driver exposes no pool statistics otherwise.
type poolStats struct {
	created    atomic.Int64
	closed     atomic.Int64
	checkedOut atomic.Int64
	checkedIn  atomic.Int64
	failed     atomic.Int64
	cleared    atomic.Int64
}

func (s *poolStats) PoolEvent(evt *event.PoolEvent) {
	switch evt.Type {
	case event.ConnectionCreated:
		s.created.Add(1)
	case event.ConnectionClosed:
		s.closed.Add(1)
	case event.GetSucceeded:
		s.checkedOut.Add(1)
	case event.ConnectionReturned:
		s.checkedIn.Add(1)
	case event.GetFailed:
		s.failed.Add(1)
	case event.PoolCleared:
		s.cleared.Add(1)
	}
}

func (s *poolStats) snapshot(maxPoolSize uint64) *DBStats {
	open := s.created.Load() - s.closed.Load()
	inUse := s.checkedOut.Load() - s.checkedIn.Load()
	idle := open - inUse
	if idle < 0 {
		idle = 0
	}
	return &DBStats{
		MaxPoolSize:        maxPoolSize,
		OpenConns:          open,
		InUse:              inUse,
		Idle:               idle,
		ConnectionsCreated: s.created.Load(),
		ConnectionsClosed:  s.closed.Load(),
		CheckOutFailed:     s.failed.Load(),
		PoolCleared:        s.cleared.Load(),
	}
}

// newPoolMonitor fans pool events out to every handler.
func newPoolMonitor(handlers ...func(*event.PoolEvent)) *event.PoolMonitor {
	return &event.PoolMonitor{
		Event: func(evt *event.PoolEvent) {
			for _, h := range handlers {
				h(evt)
			}
		},
	}
}
