// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chaincfg defines the network parameters the block index relies on.
//
// There are three standard networks: the main network, the public test
// network and the regression test network.  Each has its own genesis header
// and median time settings.  Software should treat input meant for one
// network as invalid on the others.
//
//	params, err := chaincfg.ParamsByName("testnet")
//	if err != nil {
//		// Handle error.
//	}
//	index := blockchain.NewBlockIndex(params)
package chaincfg
