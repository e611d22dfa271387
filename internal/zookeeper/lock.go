// internal/zookeeper/lock.go
package zookeeper

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-zookeeper/zk"
)

const (
	lockRoot = "/gavel/job_locks" // 任务分发锁的根节点
)

// DistributedLock 基于临时顺序节点实现的分布式互斥锁。
// 任务消费者在处理某个拍卖的 Job 前先拿到该拍卖的锁，
// 保证 at-least-once 投递下同一拍卖的任务不会被多个 worker 并发处理。
type DistributedLock struct {
	conn     *Conn
	path     string // 锁路径，例如 /gavel/job_locks/auction-123
	lockNode string // 成功获取锁后自己创建的节点路径
}

// NewDistributedLock 创建一个绑定到 resourceID 的锁实例。
func NewDistributedLock(conn *Conn, resourceID string) *DistributedLock {
	ensurePath(conn, lockRoot)
	lockPath := lockRoot + "/" + resourceID
	ensurePath(conn, lockPath)
	return &DistributedLock{conn: conn, path: lockPath}
}

// ensurePath 逐级创建持久节点，节点已存在不算错误。
func ensurePath(conn *Conn, path string) {
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	current := ""
	for _, part := range parts {
		current += "/" + part
		if exists, _, err := conn.Exists(current); err == nil && exists {
			continue
		}
		if _, err := conn.Create(current, []byte(""), 0, zk.WorldACL(zk.PermAll)); err != nil && err != zk.ErrNodeExists {
			panic(fmt.Sprintf("failed to create lock node %s: %v", current, err))
		}
	}
}

// Lock 尝试获取锁，拿不到则阻塞等待，最多等 waitTimeout。
func (l *DistributedLock) Lock(waitTimeout time.Duration) error {
	// 1. 创建临时顺序节点
	nodePath, err := l.conn.CreateProtectedEphemeralSequential(l.path+"/lock-", []byte(""), zk.WorldACL(zk.PermAll))
	if err != nil {
		return fmt.Errorf("failed to create sequential node: %w", err)
	}
	l.lockNode = nodePath

	deadline := time.Now().Add(waitTimeout)
	for {
		// 2. 取出全部子节点并排序
		children, _, err := l.conn.Children(l.path)
		if err != nil {
			return fmt.Errorf("failed to get children nodes: %w", err)
		}
		sort.Strings(children)

		// 3. 自己是最小节点即获得锁
		myNodeName := strings.TrimPrefix(l.lockNode, l.path+"/")
		if myNodeName == children[0] {
			return nil
		}

		// 4. 否则监听排在自己前面的节点
		prevNodeIndex := -1
		for i, child := range children {
			if child == myNodeName {
				prevNodeIndex = i - 1
				break
			}
		}
		if prevNodeIndex < 0 {
			return errors.New("cannot find previous node, something is wrong")
		}
		prevNodePath := l.path + "/" + children[prevNodeIndex]

		_, _, eventChan, err := l.conn.ExistsW(prevNodePath)
		if err != nil {
			if err == zk.ErrNoNode {
				// 前一个节点刚好释放了，重新竞争
				continue
			}
			return fmt.Errorf("failed to watch previous node: %w", err)
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			l.abandon()
			return errors.New("timeout waiting for lock")
		}
		select {
		case event := <-eventChan:
			if event.Type == zk.EventNodeDeleted {
				continue
			}
		case <-time.After(remaining):
			l.abandon()
			return errors.New("timeout waiting for lock")
		}
	}
}

// Unlock 释放锁。
func (l *DistributedLock) Unlock() error {
	if l.lockNode == "" {
		return errors.New("no lock to unlock")
	}
	err := l.conn.Delete(l.lockNode, -1)
	if err != nil && err != zk.ErrNoNode {
		return fmt.Errorf("failed to delete lock node: %w", err)
	}
	l.lockNode = ""
	return nil
}

// abandon 放弃排队，删除自己的节点避免占坑。
func (l *DistributedLock) abandon() {
	_ = l.conn.Delete(l.lockNode, -1)
	l.lockNode = ""
}
