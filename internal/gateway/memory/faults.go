package memory

import (
	"context"
	"sync"
	"time"
)

// Op имя операции шлюза для внедрения сбоев
type Op string

const (
	OpFetch          Op = "fetch"
	OpCreate         Op = "create"
	OpUpdate         Op = "update"
	OpDelete         Op = "delete"
	OpToggle         Op = "toggle"
	OpCategories     Op = "categories"
	OpTags           Op = "tags"
	OpStatistics     Op = "statistics"
	OpLogin          Op = "login"
	OpRegister       Op = "register"
	OpLogout         Op = "logout"
	OpChangePassword Op = "change_password"
	OpUpdateProfile  Op = "update_profile"
	OpDeleteAccount  Op = "delete_account"
)

// faults искусственная задержка и одноразовые ошибки для тестов и dev-режима
type faults struct {
	mu      sync.Mutex
	latency time.Duration
	next    map[Op]error
}

// FailNext заставляет следующий вызов операции op вернуть err
func (f *faults) FailNext(op Op, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.next == nil {
		f.next = make(map[Op]error)
	}
	f.next[op] = err
}

// SetLatency задает задержку перед каждой операцией
func (f *faults) SetLatency(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latency = d
}

// take выдерживает задержку (с учетом отмены контекста) и забирает внедренную ошибку
func (f *faults) take(ctx context.Context, op Op) error {
	f.mu.Lock()
	latency := f.latency
	err := f.next[op]
	delete(f.next, op)
	f.mu.Unlock()

	if latency > 0 {
		timer := time.NewTimer(latency)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	} else if err := ctx.Err(); err != nil {
		return err
	}

	return err
}
