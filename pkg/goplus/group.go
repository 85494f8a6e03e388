package goplus

import "sync"

var defaultGroup = NewWaitGroup()

// Go 在默认组内启动带 panic 保护的协程
func Go(fn func()) {
	defaultGroup.Go(fn)
}

// Wait 等待默认组内所有协程退出
func Wait() {
	defaultGroup.Wait()
}

type WaitGroup struct {
	wg sync.WaitGroup
}

func NewWaitGroup() *WaitGroup {
	return &WaitGroup{}
}

func (s *WaitGroup) Go(fn func()) {
	s.wg.Add(1)

	go func() {
		defer Recover()
		defer s.wg.Done()

		fn()
	}()
}

func (s *WaitGroup) Wait() {
	s.wg.Wait()
}
