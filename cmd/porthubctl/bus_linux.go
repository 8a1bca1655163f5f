//go:build linux

package main

import "porthub-go/transport/i2cdev"

func openBus(index int) (hubBus, error) { return i2cdev.Open(index) }
