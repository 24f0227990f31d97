/*
 * Copyright (c) 2025, WSO2 LLC. (https://www.wso2.com).
 *
 * WSO2 LLC. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

package utils

import "time"

// Clock returns the current time in milliseconds since epoch. Services take one so tests can pin "now".
type Clock func() int64

// GetCurrentTimeMillis returns current time in milliseconds since epoch.
func GetCurrentTimeMillis() int64 {
	return time.Now().UnixMilli()
}

// FixedClock returns a Clock that always reports millis.
func FixedClock(millis int64) Clock {
	return func() int64 { return millis }
}

// MillisToTime converts milliseconds since epoch to time.Time.
func MillisToTime(millis int64) time.Time {
	return time.UnixMilli(millis).UTC()
}

// IsExpired reports whether a deadline has been reached. The boundary is inclusive.
func IsExpired(deadline *int64, now int64) bool {
	return deadline != nil && now >= *deadline
}
