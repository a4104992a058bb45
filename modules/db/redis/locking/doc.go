// Copyright 2025 Nhat-Nguyen Nguyen
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package locking runs background tasks under a distributed lock so that at
// most one node executes a given task at a time.
//
//	client, _ := rueidis.NewClient(rueidis.ClientOption{InitAddress: []string{"127.0.0.1:6379"}})
//	locker, _ := rueidislock.NewLocker(rueidislock.LockerOption{
//		ClientOption: rueidis.ClientOption{InitAddress: []string{"127.0.0.1:6379"}},
//		KeyMajority:  1,
//	})
//	exec := locking.NewLockingTaskExecutor(locker, locking.WithNamePrefix("linkbio:"))
//	err := exec.Execute(ctx, locking.LockConfiguration{
//		Name:           "sweep-placements",
//		LockAtMostFor:  time.Minute,
//		LockAtLeastFor: 10 * time.Second,
//	}, sweep)
//	if errors.Is(err, locking.ErrLockNotAcquired) {
//		// another node is sweeping
//	}
package locking
