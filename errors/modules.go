/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package errors

// Each core package owns a disjoint range of error codes so a bare CodeError
// value printed in a log line can be traced back to its subsystem without a
// lookup table. Ranges leave headroom for each package to grow.
const (
	MinPkgAlloc     = 100 // alloc: pack/serial/pool/os allocators
	MinPkgBufPool   = 200 // bufpool: sized buffer pool + object pool
	MinPkgContainer = 300 // container: simplearray/dynarray/vector/list/flat
	MinPkgShm       = 400 // ipc/shm: shared memory regions
	MinPkgMutex     = 500 // ipc/mutex: inter-process mutex schemes
	MinPkgStats     = 600 // stats: memory block, histogram, registry
	MinPkgQueue     = 700 // queue: connection queue
	MinPkgCommand   = 800 // command: command bus + tokenizer
	MinPkgRegistry  = 900 // registry: child registry

	MinPkgChild   = 1000 // child: acceptor + worker + lifecycle
	MinPkgMonitor = 1100 // monitor: supervisor + scaling + reconfigure
	MinPkgLookup  = 1200 // lookup: lookup-table core

	MinPkgLogger  = 1600 // logger (ambient)
	MinPkgIOUtils = 1400 // ioutils (ambient)
	MinPkgConfig  = 1700 // config/CLI (ambient)

	MinAvailable = 4000
)
