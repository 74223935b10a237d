// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package frame implements the length-prefixed framing of the protocol and
// its threshold compression envelope.
//
// A frame is VarInt(length) ++ body. Without compression the body is the
// packet payload itself. Once compression is on, the body is
// VarInt(uncompressed size) ++ data, where a zero size means data is the
// payload stored literally and any other size means data is a zlib stream
// of that many bytes.
package frame
