// Package bridge 提供同步/异步双入口的执行桥。
//
// 同步调用方和已经运行在执行桥自身任务里的调用方都可以安全发起操作：
// 同步调用各自在一个仅属于本次调用、返回前必然回收的协程上执行，
// 并发请求之间互不排队；异步调用排队到共享的常驻执行协程上串行完成，
// 其任务内部再发起的嵌套调用同样走隔离协程，不会派发回共享协程造成
// 自我死锁。两条路径对相同输入产生完全一致的结果。
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrBridgeClosed 执行桥已关闭错误
var ErrBridgeClosed = errors.New("execution bridge is closed")

// Operation 可在执行桥上运行的操作
type Operation func(ctx context.Context) (interface{}, error)

// Result 操作结果
type Result struct {
	Value interface{}
	Err   error
}

// markerKey 注入任务上下文的标记键，用于识别嵌套调用
type markerKey struct{}

// task 待执行的任务
type task struct {
	ctx    context.Context
	op     Operation
	result chan Result
}

// Bridge 执行桥
type Bridge struct {
	tasks     chan *task
	done      chan struct{}
	closeOnce sync.Once
}

// New 创建执行桥并启动常驻执行协程
func New() *Bridge {
	b := &Bridge{
		tasks: make(chan *task),
		done:  make(chan struct{}),
	}
	go b.runner()
	return b
}

// runner 常驻执行协程，串行消费任务
func (b *Bridge) runner() {
	for {
		select {
		case <-b.done:
			return
		case t := <-b.tasks:
			t.result <- b.execute(t.ctx, t.op)
		}
	}
}

// execute 执行单个操作
// 给任务上下文注入标记，操作内部再次调用执行桥时据此识别嵌套；
// 操作 panic 被吸收为错误，保证执行协程存活。
func (b *Bridge) execute(ctx context.Context, op Operation) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Result{Err: fmt.Errorf("operation panicked: %v", r)}
		}
	}()

	ctx = context.WithValue(ctx, markerKey{}, b)
	value, err := op(ctx)
	return Result{Value: value, Err: err}
}

// isNested 判断调用是否发起自本执行桥的任务内部
func (b *Bridge) isNested(ctx context.Context) bool {
	owner, _ := ctx.Value(markerKey{}).(*Bridge)
	return owner == b
}

// RunSync 同步运行操作，阻塞直至完成
// 每次调用在各自的隔离协程上执行，返回前无条件等待该协程结束
// （包括出错路径），并发的同步调用互不排队；嵌套与普通路径行为一致，
// 仅普通调用在入口处拒绝已关闭的执行桥。
func (b *Bridge) RunSync(ctx context.Context, op Operation) (interface{}, error) {
	if !b.isNested(ctx) {
		select {
		case <-b.done:
			return nil, ErrBridgeClosed
		default:
		}
	}

	result := make(chan Result, 1)
	go func() {
		result <- b.execute(ctx, op)
	}()
	r := <-result
	return r.Value, r.Err
}

// RunAsync 异步运行操作，立即返回结果通道
// 嵌套上下文直接在新协程中执行；普通上下文排队到共享执行协程。
func (b *Bridge) RunAsync(ctx context.Context, op Operation) <-chan Result {
	result := make(chan Result, 1)

	if b.isNested(ctx) {
		go func() {
			result <- b.execute(ctx, op)
		}()
		return result
	}

	t := &task{
		ctx:    ctx,
		op:     op,
		result: result,
	}

	go func() {
		select {
		case b.tasks <- t:
		case <-b.done:
			result <- Result{Err: ErrBridgeClosed}
		}
	}()

	return result
}

// Close 关闭执行桥
// 已排队但尚未开始的任务不再执行。
func (b *Bridge) Close() {
	b.closeOnce.Do(func() {
		close(b.done)
	})
}
