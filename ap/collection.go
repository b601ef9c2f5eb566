/*
Copyright 2026 Dima Krasner

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package ap

const CollectionType = "Collection"

// CollectionItem is a reference to an actor that interacted with a post.
type CollectionItem struct {
	Type  ActivityType `json:"type"`
	Actor string       `json:"actor"`
}

// Collection is a count-tracked set of [CollectionItem] embedded in a post.
// TotalItems always equals len(Items) and an empty collection is never stored.
type Collection struct {
	Context    any              `json:"@context,omitempty"`
	ID         string           `json:"id"`
	Type       string           `json:"type"`
	TotalItems int              `json:"totalItems"`
	Items      []CollectionItem `json:"items"`
}

// IndexOf returns the index of the item by an actor, or -1.
func (c *Collection) IndexOf(actor string) int {
	for i, item := range c.Items {
		if item.Actor == actor {
			return i
		}
	}
	return -1
}
