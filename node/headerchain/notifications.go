// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package headerchain

import (
	"fmt"

	"gitlab.com/jaxnet/headerdb/node/headerindex"
)

// NotificationType represents the type of a notification message.
type NotificationType int

// NotificationCallback is used for a caller to provide a callback for
// notifications about various chain events.
type NotificationCallback func(*Notification)

// Constants for the type of a notification message.
const (
	// NTChainTipChanged indicates a header became the new best tip.
	NTChainTipChanged NotificationType = iota

	// NTReorganization indicates the new best tip is not a descendant of
	// the old one and headers were disconnected from the best chain.
	NTReorganization
)

// notificationTypeStrings is a map of notification types back to their
// constant names for pretty printing.
var notificationTypeStrings = map[NotificationType]string{
	NTChainTipChanged: "NTChainTipChanged",
	NTReorganization:  "NTReorganization",
}

// String returns the NotificationType in human-readable form.
func (n NotificationType) String() string {
	if s, ok := notificationTypeStrings[n]; ok {
		return s
	}
	return fmt.Sprintf("Unknown Notification Type (%d)", int(n))
}

// TipChange is the data of both notification types.
type TipChange struct {
	// Tip is the state of the new best tip.
	Tip *BestState

	// Report is the result of adding the header that became the tip.
	Report headerindex.ReorgReport
}

// Notification defines notification that is sent to the caller via the
// callback function provided during the call to Subscribe.  The Data field
// is a *TipChange for every notification type.
type Notification struct {
	Type NotificationType
	Data interface{}
}

// Subscribe to chain notifications.  Registers a callback to be executed
// when various events take place.
//
// Callbacks run without the chain lock held, so they may query the chain, and
// are delivered one at a time in the order the tip changed.  A callback must
// not process headers itself.
func (c *HeaderChain) Subscribe(callback NotificationCallback) {
	c.notificationsLock.Lock()
	c.notifications = append(c.notifications, callback)
	c.notificationsLock.Unlock()
}

// sendNotification sends a notification with the passed type and data if the
// caller requested notifications by providing a callback function in the call
// to Subscribe.  It must be called without the chain lock held.
func (c *HeaderChain) sendNotification(typ NotificationType, data interface{}) {
	// Generate and send the notification.
	n := Notification{Type: typ, Data: data}
	c.notificationsLock.RLock()
	for _, callback := range c.notifications {
		callback(&n)
	}
	c.notificationsLock.RUnlock()
}

// unlockAndNotify releases the chain lock taken for writes and announces the
// change, if any.  The dispatch lock is acquired first, so a later tip change
// can't overtake this one.
func (c *HeaderChain) unlockAndNotify(change *TipChange) {
	if change == nil {
		c.chainLock.Unlock()
		return
	}

	c.dispatchLock.Lock()
	c.chainLock.Unlock()
	c.notifyTipChange(change)
	c.dispatchLock.Unlock()
}

// notifyTipChange announces a best tip change and, when headers were
// disconnected, the reorganization.
func (c *HeaderChain) notifyTipChange(change *TipChange) {
	c.sendNotification(NTChainTipChanged, change)
	if change.Report.IsReorganization() {
		c.sendNotification(NTReorganization, change)
	}
}
