package activity

/*
#cgo LDFLAGS: -framework IOKit -framework CoreFoundation

#include <stdint.h>
#include <stdlib.h>
#include <IOKit/pwr_mgt/IOPMLib.h>
#include <IOKit/IOMessage.h>
#include <CoreFoundation/CoreFoundation.h>

extern void goPowerCallback(uintptr_t handle, int messageType);

// Message types passed to Go:
// 1 = sleep
// 2 = wake

typedef struct {
	io_connect_t rootPort;
	IONotificationPortRef notifyPort;
	io_object_t notifier;
	uintptr_t handle;
} powerRegistration;

static void powerCallbackC(void *refCon, io_service_t service, natural_t messageType, void *messageArgument) {
	powerRegistration *reg = (powerRegistration *)refCon;
	switch (messageType) {
	case kIOMessageCanSystemSleep:
		IOAllowPowerChange(reg->rootPort, (long)messageArgument);
		break;
	case kIOMessageSystemWillSleep:
		goPowerCallback(reg->handle, 1);
		IOAllowPowerChange(reg->rootPort, (long)messageArgument);
		break;
	case kIOMessageSystemHasPoweredOn:
		goPowerCallback(reg->handle, 2);
		break;
	}
}

static powerRegistration *registerPowerCallbacks(uintptr_t handle) {
	powerRegistration *reg = calloc(1, sizeof(powerRegistration));
	if (reg == NULL) {
		return NULL;
	}
	reg->handle = handle;
	reg->rootPort = IORegisterForSystemPower(reg, &reg->notifyPort, powerCallbackC, &reg->notifier);
	if (reg->rootPort == 0) {
		free(reg);
		return NULL;
	}
	CFRunLoopAddSource(CFRunLoopGetCurrent(), IONotificationPortGetRunLoopSource(reg->notifyPort), kCFRunLoopDefaultMode);
	return reg;
}

static void deregisterPowerCallbacks(powerRegistration *reg) {
	CFRunLoopRemoveSource(CFRunLoopGetCurrent(), IONotificationPortGetRunLoopSource(reg->notifyPort), kCFRunLoopDefaultMode);
	IODeregisterForSystemPower(&reg->notifier);
	IOServiceClose(reg->rootPort);
	IONotificationPortDestroy(reg->notifyPort);
	free(reg);
}

static void runRunLoop(void) {
	CFRunLoopRun();
}

static void stopRunLoop(CFRunLoopRef rl) {
	CFRunLoopStop(rl);
}
*/
import "C"

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"runtime/cgo"
	"time"
)

// ioKitPowerSource receives sleep and wake notifications from IOKit.
// Screen lock is not reported on this platform.
type ioKitPowerSource struct {
	logger *slog.Logger
}

type ioKitWatch struct {
	ctx    context.Context
	events chan<- PowerEvent
}

// NewSystemPowerSource returns the power source for this platform.
func NewSystemPowerSource(logger *slog.Logger) PowerSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &ioKitPowerSource{logger: logger}
}

//export goPowerCallback
func goPowerCallback(handle C.uintptr_t, messageType C.int) {
	w, ok := cgo.Handle(handle).Value().(*ioKitWatch)
	if !ok {
		return
	}

	var ev PowerEvent
	switch messageType {
	case 1:
		ev = PowerSuspend
	case 2:
		ev = PowerResume
	default:
		return
	}

	select {
	case w.events <- ev:
	case <-w.ctx.Done():
	}
}

func (s *ioKitPowerSource) Watch(ctx context.Context, events chan<- PowerEvent) error {
	// The run loop belongs to the thread that registered the callbacks.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	h := cgo.NewHandle(&ioKitWatch{ctx: ctx, events: events})
	defer h.Delete()

	reg := C.registerPowerCallbacks(C.uintptr_t(h))
	if reg == nil {
		return errors.New("failed to register for system power notifications")
	}

	rl := C.CFRunLoopGetCurrent()
	stopped := make(chan struct{})
	go func() {
		<-ctx.Done()
		// CFRunLoopStop is ignored until the loop is running, so retry.
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			C.stopRunLoop(rl)
			select {
			case <-stopped:
				return
			case <-ticker.C:
			}
		}
	}()

	s.logger.Info("Power monitor started (IOKit)")
	C.runRunLoop()
	close(stopped)
	C.deregisterPowerCallbacks(reg)

	s.logger.Debug("Power monitor stopped")
	return ctx.Err()
}
