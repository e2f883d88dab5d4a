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

// The five error kinds the core distinguishes, each with one escalation
// policy (documented on the constant). Every subsystem Init returns one of
// these wrapped as an Error, never a bare error.
const (
	// CodeStartup: resource exhaustion at startup (shared-mem create, mutex
	// init, listen socket). Fatal: log and exit the monitor.
	CodeStartup CodeError = MinPkgMonitor + iota

	// CodeRequestIO: per-request I/O error. Local recovery: hard-close the
	// connection, increment an error counter, keep serving other requests.
	CodeRequestIO

	// CodeQueueSaturation: the connection queue was full. Drop the freshly
	// accepted connection, warn at level 1, continue.
	CodeQueueSaturation

	// CodeChildCrash: a worker child exited abnormally. The monitor logs the
	// signal, classifies the child as crashed, frees its slot and spawns a
	// replacement on the next tick.
	CodeChildCrash

	// CodeParentGone: the child's control pipe hit EOF. Treated exactly like
	// an IMMEDIATELY termination command.
	CodeParentGone
)

func init() {
	RegisterIdFctMessage(CodeStartup, func(code CodeError) string {
		switch code {
		case CodeStartup:
			return "fatal resource exhaustion during startup"
		case CodeRequestIO:
			return "per-request I/O error"
		case CodeQueueSaturation:
			return "connection queue saturated, connection dropped"
		case CodeChildCrash:
			return "worker child exited abnormally"
		case CodeParentGone:
			return "control pipe closed by parent"
		default:
			return UnknownMessage
		}
	})
}
