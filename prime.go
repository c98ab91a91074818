// Copyright 2024 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package hashtable

// isPrime reports whether n is prime using trial division by odd factors up
// to sqrt(n). 2 and 3 are prime by definition.
func isPrime(n int) bool {
	if n == 2 || n == 3 {
		return true
	}
	if n <= 1 || n%2 == 0 {
		return false
	}
	for factor := 3; factor*factor <= n; factor += 2 {
		if n%factor == 0 {
			return false
		}
	}
	return true
}

// nextPrime returns the smallest prime >= n, where an even n is first bumped
// to the following odd number. Note that this means nextPrime(2) is 3, while
// a capacity of 2 passed to Resize is kept since it is already prime.
func nextPrime(n int) int {
	if n%2 == 0 {
		n++
	}
	if n < 3 {
		n = 3
	}
	for !isPrime(n) {
		n += 2
	}
	return n
}
