// Package events carries notifications about task changes from the service
// layer to the components that react to them, such as the search projection,
// without the service importing those components.
package events
