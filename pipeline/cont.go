// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pipeline

import "github.com/luxfi/concord/block"

// ExecuteCont is the continuation handle receiveBlock returns on success,
// per the design notes' "two-phase reception" pattern (§9). The caller
// must either pass it to Pipeline.ExecuteBlock, which calls Drop on
// return, or call Drop itself; Go has no destructors, so nothing drops an
// abandoned handle automatically.
type ExecuteCont struct {
	blk      *block.Block
	executed bool
	drop     func(*block.Block)
}

// Drop marks the block dead if Execute was never called. Safe to call
// after a successful Execute (it becomes a no-op).
func (c *ExecuteCont) Drop() {
	if c == nil || c.executed {
		return
	}
	c.executed = true
	if c.drop != nil {
		c.drop(c.blk)
	}
}

// Block exposes the pending block for inspection without executing it.
func (c *ExecuteCont) Block() *block.Block {
	if c == nil {
		return nil
	}
	return c.blk
}
