// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Low-level threading primitives shared by the public packages: a busy-wait
// spinlock, managed OS threads with stable identities, and thread keys whose
// destructors run when a managed thread exits.
//
// Thread identity is platform-specific (Linux/Windows use the kernel thread
// id) and selected with build tags.
package concurrency
