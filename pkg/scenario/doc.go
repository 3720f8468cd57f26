/*
Copyright 2026 Nscale.

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

// Package scenario runs the fixed end to end scenario against the task
// management API: register and log in both roles, then exercise users, tasks
// and billing as the admin, one request at a time.
//
// Tokens and resource IDs flow from one step to the next through a Session
// owned by the Runner. A step that needs something an earlier step failed to
// produce fails straight away, naming what is missing, and sends nothing.
package scenario
